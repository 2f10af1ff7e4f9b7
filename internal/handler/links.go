package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"shortr/internal"
	"shortr/internal/repo"
	"shortr/internal/shortcode"
)

// maxCreateAttempts bounds how many fresh codes registration tries
// when the store rejects a duplicate before giving up.
const maxCreateAttempts = 3

type LinkHandler struct {
	links   *repo.LinksRepo
	baseURL string
}

// NewLinkHandler wires the handler to its store. baseURL is the
// service's public address, used to compose shortened URLs.
func NewLinkHandler(links *repo.LinksRepo, baseURL string) *LinkHandler {
	return &LinkHandler{
		links:   links,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type RegisterRequest struct {
	Link string `json:"link"`
}

type RegisterData struct {
	ShortnedURL string `json:"shortned_url"`
	ClickCount  int64  `json:"click_count"`
}

type RegisterResponse struct {
	Status  int           `json:"status"`
	Data    *RegisterData `json:"data"`
	Message string        `json:"message"`
}

// Register handles POST /api/url: mint a code, persist the mapping,
// return the shortened URL. A code collision gets a fresh code rather
// than surfacing the constraint violation to the caller.
func (h *LinkHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	originalLink := strings.TrimSpace(req.Link)
	if originalLink == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "please enter a valid url")
	}

	var link *repo.Link
	var err error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		var code string
		code, err = shortcode.New()
		if err != nil {
			log.Error().Err(err).Msg("failed to generate short code")
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}

		link, err = h.links.Create(ctx, code, originalLink)
		if errors.Is(err, internal.ErrCodeExists) {
			log.Warn().Str("code", code).Int("attempt", attempt).Msg("retrying with a fresh code")
			continue
		}
		break
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to create link")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusCreated, RegisterResponse{
		Status: http.StatusCreated,
		Data: &RegisterData{
			ShortnedURL: h.baseURL + "/" + link.ShortCode,
			ClickCount:  link.ClickCount,
		},
		Message: "url shortened successfully",
	})
}

// Redirect handles GET /:code: count the visit, then send the caller
// to the stored target. The increment always lands before the
// redirect is written.
func (h *LinkHandler) Redirect(c echo.Context) error {
	ctx := c.Request().Context()

	code := c.Param("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing short code")
	}

	log.Debug().Str("code", code).Msg("redirect request")

	if _, err := h.links.GetByCode(ctx, code); err != nil {
		if errors.Is(err, internal.ErrLinkNotFound) {
			log.Warn().Str("code", code).Msg("link not found")
			return echo.NewHTTPError(http.StatusNotFound, "no url found for this code")
		}
		log.Error().Err(err).Str("code", code).Msg("failed to look up link")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	link, err := h.links.IncrementClicks(ctx, code)
	if err != nil {
		if errors.Is(err, internal.ErrLinkNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no url found for this code")
		}
		log.Error().Err(err).Str("code", code).Msg("failed to record click")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	target := normalizeTarget(link.OriginalLink)

	log.Info().Str("code", code).Str("target", target).Int64("clicks", link.ClickCount).Msg("redirecting")

	return c.Redirect(http.StatusFound, target)
}

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// normalizeTarget prepares a stored link for the Location header.
// The stored value stays untouched; the scheme is filled in on every
// redirect so the original input is preserved faithfully.
func normalizeTarget(link string) string {
	link = strings.TrimSpace(link)
	return lo.Ternary(schemePattern.MatchString(link), link, "https://"+link)
}

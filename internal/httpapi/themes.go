package httpapi

import (
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// themesBody is the payload of GET and PUT /api/themes.
type themesBody struct {
	Themes map[string][]string `json:"themes"`
}

// handleGetThemes returns the theme mapping of ?symbols=A,B, or of the
// whole symbol universe when the parameter is absent. Unmapped symbols
// are omitted.
func (s *Server) handleGetThemes(w http.ResponseWriter, r *http.Request) {
	if s.opts.ThemeStore == nil {
		writeError(w, http.StatusServiceUnavailable, "theme store not configured")
		return
	}

	ctx := r.Context()
	syms := splitSymbols(r.URL.Query().Get("symbols"))
	if len(syms) == 0 && s.opts.Watchlists != nil {
		all, err := s.opts.Watchlists.AllSymbols(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("list universe")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		syms = all
	}

	themes, err := s.opts.ThemeStore.Themes(ctx, syms)
	if err != nil {
		s.logger.Error().Err(err).Msg("read themes")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, themesBody{Themes: themes})
}

// handlePutThemes replaces the themes of every symbol in the body. An
// empty list unmaps the symbol. Symbols absent from the body are kept.
func (s *Server) handlePutThemes(w http.ResponseWriter, r *http.Request) {
	if s.opts.ThemeStore == nil {
		writeError(w, http.StatusServiceUnavailable, "theme store not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	var req themesBody
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON: "+err.Error())
		return
	}
	if len(req.Themes) == 0 {
		writeError(w, http.StatusBadRequest, "themes must not be empty")
		return
	}

	symbols := make([]string, 0, len(req.Themes))
	for sym := range req.Themes {
		if strings.TrimSpace(sym) == "" {
			writeError(w, http.StatusBadRequest, "empty symbol in themes")
			return
		}
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	ctx := r.Context()
	for _, sym := range symbols {
		if err := s.opts.ThemeStore.SetThemes(ctx, sym, cleanThemes(req.Themes[sym])); err != nil {
			s.logger.Error().Err(err).Str("symbol", sym).Msg("set themes")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	updated, err := s.opts.ThemeStore.Themes(ctx, symbols)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info().Int("symbols", len(symbols)).Msg("themes updated")
	writeJSON(w, http.StatusOK, themesBody{Themes: updated})
}

func splitSymbols(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// cleanThemes trims labels and drops blanks and repeats, keeping order.
func cleanThemes(themes []string) []string {
	seen := make(map[string]bool, len(themes))
	out := make([]string, 0, len(themes))
	for _, th := range themes {
		th = strings.TrimSpace(th)
		if th == "" || seen[th] {
			continue
		}
		seen[th] = true
		out = append(out, th)
	}
	return out
}

package hostfuncs

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/wordsdk/wordsdk-go/fonts"
)

// Host function names exported to the guest.
const (
	FuncFontLookup   = "font_lookup"
	FuncFontFamilies = "font_families"
	FuncLogMessage   = "log_message"
)

// FontSource is the font registry seen by the font handlers.
type FontSource interface {
	Faces() []fonts.Face
	LookupStyle(family, style string) ([]byte, error)
}

// FontLookupRequest asks for the data of one face. An empty style selects
// the family's Regular face.
type FontLookupRequest struct {
	Family string `json:"family"`
	Style  string `json:"style,omitempty"`
}

// FontLookupResponse carries font file bytes (base64 in JSON).
type FontLookupResponse struct {
	Family string         `json:"family"`
	Style  string         `json:"style,omitempty"`
	Data   []byte         `json:"data,omitempty"`
	Error  *ErrorResponse `json:"error,omitempty"`
}

// FontFamiliesRequest lists registered families, optionally filtered by a
// case-insensitive prefix.
type FontFamiliesRequest struct {
	Prefix string `json:"prefix,omitempty"`
}

// FontFamiliesResponse lists family names and every face behind them.
type FontFamiliesResponse struct {
	Families []string     `json:"families"`
	Faces    []fonts.Face `json:"faces,omitempty"`
}

// PerformFontLookup resolves req against src.
func PerformFontLookup(ctx context.Context, src FontSource, req FontLookupRequest) FontLookupResponse {
	resp := FontLookupResponse{Family: req.Family, Style: req.Style}
	call := CallFrom(ctx)
	call.Note(slog.String("family", req.Family), slog.String("style", req.Style))
	if strings.TrimSpace(req.Family) == "" {
		e := NewValidationError("family is required")
		resp.Error = &e
		call.Note(slog.String("result", e.Error))
		return resp
	}

	data, err := src.LookupStyle(req.Family, req.Style)
	switch {
	case errors.Is(err, fonts.ErrFontNotFound):
		e := NewNotFoundError(strings.TrimSpace("font family " + req.Family + " " + req.Style))
		resp.Error = &e
	case err != nil:
		e := NewInternalError(err.Error())
		resp.Error = &e
	default:
		resp.Data = data
	}
	if resp.Error != nil {
		call.Note(slog.String("result", resp.Error.Error))
	} else {
		call.Note(slog.String("result", "found"), slog.Int("font_bytes", len(data)))
	}
	return resp
}

// PerformFontFamilies lists the families in src. Faces of one family are
// expected to be adjacent, as fonts.Registry.Faces returns them.
func PerformFontFamilies(ctx context.Context, src FontSource, req FontFamiliesRequest) FontFamiliesResponse {
	resp := FontFamiliesResponse{Families: []string{}}
	prefix := strings.ToLower(req.Prefix)
	for _, f := range src.Faces() {
		if !strings.HasPrefix(strings.ToLower(f.Family), prefix) {
			continue
		}
		resp.Faces = append(resp.Faces, f)
		if n := len(resp.Families); n == 0 || !strings.EqualFold(resp.Families[n-1], f.Family) {
			resp.Families = append(resp.Families, f.Family)
		}
	}
	CallFrom(ctx).Note(slog.String("prefix", req.Prefix), slog.Int("faces", len(resp.Faces)))
	return resp
}

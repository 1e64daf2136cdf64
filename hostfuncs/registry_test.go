package hostfuncs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var goFonts = fakeFonts{"Go": {"Regular": []byte("go-regular"), "Bold": []byte("go-bold")}}

func TestNewRegistry_FontBundle(t *testing.T) {
	reg, err := NewRegistry(WithBundle(FontBundle(goFonts)))
	require.NoError(t, err)
	assert.Equal(t, []string{FuncFontFamilies, FuncFontLookup}, reg.Names())

	empty, err := NewRegistry()
	require.NoError(t, err)
	assert.Empty(t, empty.Names())
}

func TestNewRegistry_Conflicts(t *testing.T) {
	noop := func(context.Context, []byte) ([]byte, error) { return nil, nil }

	tests := []struct {
		name    string
		opts    []RegistryOption
		wantErr string
	}{
		{
			name:    "font bundle twice",
			opts:    []RegistryOption{WithBundle(FontBundle(goFonts)), WithBundle(FontBundle(fakeFonts{}))},
			wantErr: `duplicate handler name: "font_`,
		},
		{
			name:    "lookup shadowed",
			opts:    []RegistryOption{WithBundle(FontBundle(goFonts)), WithBundle(bundle{FuncFontLookup: noop})},
			wantErr: `duplicate handler name: "font_lookup"`,
		},
		{
			name:    "unnamed handler",
			opts:    []RegistryOption{WithBundle(bundle{"": noop})},
			wantErr: "cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistry_Invoke(t *testing.T) {
	reg, err := NewRegistry(WithBundle(FontBundle(goFonts)))
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := reg.Invoke(ctx, FuncFontLookup, []byte(`{"family":"go","style":"bold"}`))
	require.NoError(t, err)
	var lookup FontLookupResponse
	require.NoError(t, json.Unmarshal(resp, &lookup))
	assert.Equal(t, "go-bold", string(lookup.Data))

	resp, err = reg.Invoke(ctx, FuncFontFamilies, nil)
	require.NoError(t, err)
	var families FontFamiliesResponse
	require.NoError(t, json.Unmarshal(resp, &families))
	assert.Equal(t, []string{"Go"}, families.Families)
	assert.Len(t, families.Faces, 2)

	resp, err = reg.Invoke(ctx, "font_metrics", []byte(`{}`))
	require.NoError(t, err)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp, &errResp))
	assert.Equal(t, "NOT_FOUND", errResp.Error)
	assert.Equal(t, "unknown host function font_metrics", errResp.Message)
}

func TestRegistry_InvokeRecordsCall(t *testing.T) {
	var seen []*Call
	record := func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			resp, err := next(ctx, payload)
			seen = append(seen, CallFrom(ctx))
			return resp, err
		}
	}

	reg, err := NewRegistry(WithMiddleware(record), WithBundle(FontBundle(goFonts)))
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), FuncFontLookup, []byte(`{"family":"Go"}`))
	require.NoError(t, err)
	_, err = reg.Invoke(context.Background(), FuncFontFamilies, []byte(`{"prefix":"no"}`))
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, FuncFontLookup, seen[0].Function)
	assert.Contains(t, noteMap(seen[0]), "family")
	assert.Equal(t, "found", noteMap(seen[0])["result"])
	assert.Equal(t, FuncFontFamilies, seen[1].Function)
	assert.Equal(t, int64(0), noteMap(seen[1])["faces"])
}

func TestWithMiddleware_Order(t *testing.T) {
	var order []string
	trace := func(name string) Middleware {
		return func(next ByteHandler) ByteHandler {
			return func(ctx context.Context, payload []byte) ([]byte, error) {
				order = append(order, name+">")
				resp, err := next(ctx, payload)
				order = append(order, "<"+name)
				return resp, err
			}
		}
	}

	reg, err := NewRegistry(
		WithMiddleware(trace("recover"), trace("log")),
		WithMiddleware(trace("inner")),
		WithBundle(FontBundle(goFonts)),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), FuncFontFamilies, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"recover>", "log>", "inner>", "<inner", "<log", "<recover"}, order)
}

func noteMap(c *Call) map[string]any {
	out := make(map[string]any)
	for _, a := range c.Notes() {
		out[a.Key] = a.Value.Any()
	}
	return out
}

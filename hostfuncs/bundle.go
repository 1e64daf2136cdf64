package hostfuncs

import (
	"context"
)

// HostFuncBundle is a set of related byte handlers registered together.
type HostFuncBundle interface {
	Handlers() map[string]ByteHandler
}

type bundle map[string]ByteHandler

func (b bundle) Handlers() map[string]ByteHandler { return b }

// FontBundle returns font_lookup and font_families backed by src.
func FontBundle(src FontSource) HostFuncBundle {
	return bundle{
		FuncFontLookup: NewJSONHandler(func(ctx context.Context, req FontLookupRequest) FontLookupResponse {
			return PerformFontLookup(ctx, src, req)
		}),
		FuncFontFamilies: NewJSONHandler(func(ctx context.Context, req FontFamiliesRequest) FontFamiliesResponse {
			return PerformFontFamilies(ctx, src, req)
		}),
	}
}

// Package enginetest holds the behaviour every engine.Provider must show
// when running the stand-in conversion module.
package enginetest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/wordsdk/wordsdk-go/engine"
	"github.com/wordsdk/wordsdk-go/fonts"
	"github.com/wordsdk/wordsdk-go/hostfuncs"
	"github.com/wordsdk/wordsdk-go/internal/abi"
	"github.com/wordsdk/wordsdk-go/internal/testguest"
)

// Factory builds a provider for module. It should call t.Skip when the
// engine is unavailable in the current build.
type Factory func(t *testing.T, module []byte) engine.Provider

// Document is the smallest input the stand-in module accepts.
var Document = []byte("PK\x03\x04 stand-in document body")

// Run exercises provider behaviour through the guest ABI.
func Run(t *testing.T, newProvider Factory) {
	t.Run("ImportExport", func(t *testing.T) { testImportExport(t, newProvider) })
	t.Run("RejectedImport", func(t *testing.T) { testRejectedImport(t, newProvider) })
	t.Run("HostLogging", func(t *testing.T) { testHostLogging(t, newProvider) })
	t.Run("HostFontQuery", func(t *testing.T) { testHostFontQuery(t, newProvider) })
	t.Run("InstanceIsolation", func(t *testing.T) { testInstanceIsolation(t, newProvider) })
	t.Run("Exports", func(t *testing.T) { testExports(t, newProvider) })
}

type logSink struct {
	buf bytes.Buffer
}

func (s *logSink) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&s.buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func hostModule(t *testing.T, logger *slog.Logger, src hostfuncs.FontSource) engine.HostModule {
	t.Helper()
	if src == nil {
		src = fonts.NewRegistry()
	}
	reg, err := hostfuncs.NewRegistry(
		hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware()),
		hostfuncs.WithBundle(hostfuncs.FontBundle(src)),
	)
	require.NoError(t, err)
	return hostfuncs.NewHostModule(reg,
		hostfuncs.WithModuleLogger(logger),
		hostfuncs.WithFunction(hostfuncs.LogMessageFunction(logger, 3)),
	)
}

func newInstance(t *testing.T, p engine.Provider, host engine.HostModule) engine.Instance {
	t.Helper()
	inst, err := p.NewInstance(context.Background(), host, engine.InstanceConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Close(context.Background()) })
	return inst
}

func provider(t *testing.T, newProvider Factory, opts ...testguest.Option) engine.Provider {
	t.Helper()
	p := newProvider(t, testguest.MustCompile(t, opts...))
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func testImportExport(t *testing.T, newProvider Factory) {
	ctx := context.Background()
	p := provider(t, newProvider)
	inst := newInstance(t, p, hostModule(t, slog.New(slog.DiscardHandler), nil))

	results, err := abi.CallWithBytes(ctx, inst, abi.ExportImport, Document)
	require.NoError(t, err)
	assert.Equal(t, abi.StatusOK, abi.StatusOf(results))

	results, err = inst.Call(ctx, abi.ExportPDF)
	require.NoError(t, err)
	require.Len(t, results, 1)
	pdf, err := abi.ReadPacked(inst, results[0])
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	size, ok := testguest.Stamp(pdf)
	require.True(t, ok)
	assert.Equal(t, uint32(len(Document)), size)
}

func testRejectedImport(t *testing.T, newProvider Factory) {
	ctx := context.Background()
	p := provider(t, newProvider)
	inst := newInstance(t, p, hostModule(t, slog.New(slog.DiscardHandler), nil))

	results, err := abi.CallWithBytes(ctx, inst, abi.ExportImport, []byte("plain text, not a package"))
	require.NoError(t, err)
	assert.Equal(t, abi.StatusMalformed, abi.StatusOf(results))
	assert.Equal(t, testguest.MsgNotDocx, abi.LastError(ctx, inst, inst.HasExport))

	results, err = inst.Call(ctx, abi.ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, results)
	assert.Equal(t, testguest.MsgNoDocument, abi.LastError(ctx, inst, inst.HasExport))
}

func testHostLogging(t *testing.T, newProvider Factory) {
	ctx := context.Background()
	var sink logSink
	p := provider(t, newProvider)
	inst := newInstance(t, p, hostModule(t, sink.logger(), nil))

	results, err := abi.CallWithBytes(ctx, inst, abi.ExportInit, []byte(`{"verbose":3}`))
	require.NoError(t, err)
	assert.Equal(t, abi.StatusOK, abi.StatusOf(results))

	out := sink.buf.String()
	assert.Contains(t, out, testguest.LogInit)
	assert.Contains(t, out, `verbose`)
	assert.Contains(t, out, "source=guest")
}

func testHostFontQuery(t *testing.T, newProvider Factory) {
	ctx := context.Background()
	reg := fonts.NewRegistry()
	_, err := reg.Register("Go", goregular.TTF)
	require.NoError(t, err)

	p := provider(t, newProvider, testguest.WithFontQuery())
	inst := newInstance(t, p, hostModule(t, slog.New(slog.DiscardHandler), reg))

	results, err := abi.CallWithBytes(ctx, inst, abi.ExportImport, Document)
	require.NoError(t, err)
	require.Equal(t, abi.StatusOK, abi.StatusOf(results))

	_, err = inst.Call(ctx, abi.ExportPDF)
	require.NoError(t, err)

	results, err = inst.Call(ctx, "testguest_fonts")
	require.NoError(t, err)
	raw, err := abi.ReadPacked(inst, results[0])
	require.NoError(t, err)

	var resp hostfuncs.FontFamiliesResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, []string{"Go"}, resp.Families)
}

func testInstanceIsolation(t *testing.T, newProvider Factory) {
	ctx := context.Background()
	p := provider(t, newProvider)
	host := hostModule(t, slog.New(slog.DiscardHandler), nil)
	a := newInstance(t, p, host)
	b := newInstance(t, p, host)

	results, err := abi.CallWithBytes(ctx, a, abi.ExportImport, Document)
	require.NoError(t, err)
	require.Equal(t, abi.StatusOK, abi.StatusOf(results))

	results, err = b.Call(ctx, abi.ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, results, "second instance must not see the first one's document")
}

func testExports(t *testing.T, newProvider Factory) {
	p := provider(t, newProvider, testguest.WithStreaming())
	assert.NotEmpty(t, p.Name())
	inst := newInstance(t, p, hostModule(t, slog.New(slog.DiscardHandler), nil))

	for _, name := range []string{
		abi.ExportAllocate, abi.ExportDeallocate, abi.ExportInit, abi.ExportImport,
		abi.ExportImportBegin, abi.ExportImportWrite, abi.ExportImportEnd,
		abi.ExportPDF, abi.ExportLastError,
	} {
		assert.True(t, inst.HasExport(name), name)
	}
	assert.False(t, inst.HasExport("missing_export"))

	_, err := inst.Call(context.Background(), "missing_export")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing_export"))
	require.NotNil(t, inst.Memory())
	assert.NotZero(t, inst.Memory().Size())
}

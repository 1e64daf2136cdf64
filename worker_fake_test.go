package wordsdk

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
	"github.com/wordsdk/wordsdk-go/engine"
	"github.com/wordsdk/wordsdk-go/fonts"
	"github.com/wordsdk/wordsdk-go/hostfuncs"
	"github.com/wordsdk/wordsdk-go/internal/abi"
	"github.com/wordsdk/wordsdk-go/internal/testutil"
	"github.com/wordsdk/wordsdk-go/license"
)

type fakeInstance struct {
	*testutil.FakeCaller
	closed bool
}

func (i *fakeInstance) Close(context.Context) error {
	i.closed = true
	return nil
}

type fakeProvider struct {
	inst *fakeInstance
	err  error
	cfg  engine.InstanceConfig
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) NewInstance(_ context.Context, _ engine.HostModule, cfg engine.InstanceConfig) (engine.Instance, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.cfg = cfg
	return p.inst, nil
}

func (p *fakeProvider) Close(context.Context) error { return nil }

func fakeOptions() Options {
	return Options{
		Logger:  slog.New(slog.DiscardHandler),
		Fonts:   fonts.NewRegistry(),
		License: &license.Registry{},
	}
}

func completeFake() *fakeInstance {
	c := testutil.NewFakeCaller(4096)
	ok := func(context.Context, []uint64) ([]uint64, error) { return []uint64{0}, nil }
	c.Handle(abi.ExportImport, ok)
	c.Handle(abi.ExportPDF, func(context.Context, []uint64) ([]uint64, error) { return []uint64{0}, nil })
	return &fakeInstance{FakeCaller: c}
}

func TestCreateWorker_NilProvider(t *testing.T) {
	_, err := CreateWorker(context.Background(), nil, fakeOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdkerrors.ErrEngineUnavailable))
}

func TestCreateWorker_InvalidOptions(t *testing.T) {
	p := &fakeProvider{inst: completeFake()}
	opts := fakeOptions()
	opts.Verbose = 7

	_, err := CreateWorker(context.Background(), p, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid options")
}

func TestCreateWorker_MissingExports(t *testing.T) {
	for _, name := range requiredExports {
		t.Run(name, func(t *testing.T) {
			inst := completeFake()
			inst.Remove(name)

			_, err := CreateWorker(context.Background(), &fakeProvider{inst: inst}, fakeOptions())
			require.Error(t, err)
			assert.True(t, errors.Is(err, sdkerrors.ErrModuleLoad))
			assert.Contains(t, err.Error(), name)
			assert.True(t, inst.closed, "instance must be released")
		})
	}
}

func TestCreateWorker_NoMemory(t *testing.T) {
	inst := completeFake()
	inst.Mem = nil

	_, err := CreateWorker(context.Background(), &fakeProvider{inst: inst}, fakeOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdkerrors.ErrModuleLoad))
	assert.Contains(t, err.Error(), abi.ExportMemory)
}

func TestCreateWorker_InstantiateFailure(t *testing.T) {
	boom := errors.New("linker: unknown import")
	_, err := CreateWorker(context.Background(), &fakeProvider{err: boom}, fakeOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdkerrors.ErrModuleLoad))
	assert.True(t, errors.Is(err, boom))

	var loadErr *sdkerrors.ModuleLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "fake", loadErr.Engine)
}

func TestCreateWorker_WithoutInitExport(t *testing.T) {
	inst := completeFake()
	w, err := CreateWorker(context.Background(), &fakeProvider{inst: inst}, fakeOptions())
	require.NoError(t, err)
	assert.NotContains(t, inst.Calls(), abi.ExportInit)
	require.NoError(t, w.Close(context.Background()))
	assert.True(t, inst.closed)
}

func TestExportPDF_MissingHeader(t *testing.T) {
	inst := completeFake()
	inst.Handle(abi.ExportPDF, func(context.Context, []uint64) ([]uint64, error) {
		copy(inst.Mem.Data[512:], "not a pdf")
		return []uint64{abi.PackPtrLen(512, 9)}, nil
	})

	w, err := CreateWorker(context.Background(), &fakeProvider{inst: inst}, fakeOptions())
	require.NoError(t, err)
	require.NoError(t, w.ImportBytes(context.Background(), []byte("PK\x03\x04")))

	_, err = w.ExportPDF(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdkerrors.ErrRender))
	assert.Contains(t, inst.Freed(), uint32(512), "rejected buffer must be released")
}

func TestExportPDF_Trap(t *testing.T) {
	inst := completeFake()
	trap := errors.New("wasm error: unreachable")
	inst.Handle(abi.ExportPDF, func(context.Context, []uint64) ([]uint64, error) { return nil, trap })

	w, err := CreateWorker(context.Background(), &fakeProvider{inst: inst}, fakeOptions())
	require.NoError(t, err)
	require.NoError(t, w.ImportBytes(context.Background(), []byte("PK\x03\x04")))

	_, err = w.ExportPDF(context.Background())
	assert.True(t, errors.Is(err, sdkerrors.ErrRender))
	assert.True(t, errors.Is(err, trap))
}

func TestImportBytes_Trap(t *testing.T) {
	inst := completeFake()
	trap := errors.New("wasm error: out of bounds memory access")
	inst.Handle(abi.ExportImport, func(context.Context, []uint64) ([]uint64, error) { return nil, trap })

	w, err := CreateWorker(context.Background(), &fakeProvider{inst: inst}, fakeOptions())
	require.NoError(t, err)

	err = w.ImportBytes(context.Background(), []byte("PK\x03\x04"))
	assert.True(t, errors.Is(err, sdkerrors.ErrImport))
	assert.True(t, errors.Is(err, trap))
	assert.False(t, w.Loaded())
}

func TestWorker_ModuleOutputTruncated(t *testing.T) {
	inst := completeFake()
	p := &fakeProvider{inst: inst}
	rec := &recorder{}
	opts := fakeOptions()
	opts.Logger = slog.New(rec)

	w, err := CreateWorker(context.Background(), p, opts)
	require.NoError(t, err)
	defer w.Close(context.Background())
	require.NotNil(t, p.cfg.Stdout)

	inst.Handle(abi.ExportImport, func(context.Context, []uint64) ([]uint64, error) {
		_, _ = p.cfg.Stdout.Write(bytes.Repeat([]byte("x"), hostfuncs.DefaultMaxOutputSize+1))
		_, _ = p.cfg.Stderr.Write([]byte("font fallback used\n"))
		return []uint64{0}, nil
	})
	require.NoError(t, w.ImportBytes(context.Background(), []byte("PK\x03\x04")))

	var truncated []string
	for _, r := range rec.records {
		if r.Message != "module output truncated" {
			continue
		}
		assert.Equal(t, slog.LevelWarn, r.Level)
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "stream" {
				truncated = append(truncated, a.Value.String())
			}
			return true
		})
	}
	assert.Equal(t, []string{"stdout"}, truncated)
	assert.Contains(t, rec.messages(), "module stderr")

	// The flag is cleared once reported.
	rec.records = nil
	inst.Handle(abi.ExportImport, func(context.Context, []uint64) ([]uint64, error) { return []uint64{0}, nil })
	require.NoError(t, w.ImportBytes(context.Background(), []byte("PK\x03\x04")))
	assert.NotContains(t, rec.messages(), "module output truncated")
}

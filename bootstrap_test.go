package wordsdk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gomono"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
	"github.com/wordsdk/wordsdk-go/fonts"
	"github.com/wordsdk/wordsdk-go/license"
)

func TestRegisterFontData(t *testing.T) {
	t.Cleanup(fonts.Default().Reset)

	family, err := RegisterFontData("fallback", gomono.TTF)
	require.NoError(t, err)
	assert.Equal(t, "Go Mono", family)
	assert.Contains(t, fonts.Default().Families(), "Go Mono")
}

func TestRegisterFont(t *testing.T) {
	t.Cleanup(fonts.Default().Reset)

	path := filepath.Join(t.TempDir(), "GoMono.ttf")
	require.NoError(t, os.WriteFile(path, gomono.TTF, 0o600))

	family, err := RegisterFont(path)
	require.NoError(t, err)
	assert.Equal(t, "Go Mono", family)

	_, err = RegisterFont(filepath.Join(t.TempDir(), "missing.ttf"))
	assert.ErrorIs(t, err, sdkerrors.ErrIO)
}

func TestUseSystemFonts(t *testing.T) {
	t.Cleanup(fonts.Default().Reset)

	n, err := UseSystemFonts()
	require.NoError(t, err)
	assert.LessOrEqual(t, fonts.Default().Len(), n)
}

func TestRegisterLicense(t *testing.T) {
	t.Cleanup(license.Default().Clear)

	path := filepath.Join(t.TempDir(), "wordsdk.lic")
	require.NoError(t, os.WriteFile(path, []byte("license-body"), 0o600))

	require.NoError(t, RegisterLicense(path, "s3cret"))
	lic, ok := license.Default().Current()
	require.True(t, ok)
	assert.Equal(t, []byte("license-body"), lic.Data)
	assert.Equal(t, "s3cret", lic.Secret)
	assert.Equal(t, path, lic.Source)

	err := RegisterLicense(filepath.Join(t.TempDir(), "missing.lic"), "")
	assert.ErrorIs(t, err, sdkerrors.ErrIO)
}

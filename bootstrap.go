package wordsdk

import (
	"github.com/wordsdk/wordsdk-go/fonts"
	"github.com/wordsdk/wordsdk-go/license"
)

// UseSystemFonts registers the fonts installed on the machine and returns
// how many were found. Workers created afterwards can use them.
func UseSystemFonts() (int, error) {
	return fonts.Default().LoadSystemFonts()
}

// RegisterFont registers the font file at path and returns its family name.
func RegisterFont(path string) (string, error) {
	return fonts.Default().RegisterFile(path)
}

// RegisterFontData registers a font held in memory. name is used when the
// font does not carry a family name of its own.
func RegisterFontData(name string, data []byte) (string, error) {
	return fonts.Default().Register(name, data)
}

// RegisterLicense reads the license file at path and registers it together
// with its secret for all workers created afterwards.
func RegisterLicense(path, secret string) error {
	return license.Default().RegisterFile(path, secret)
}

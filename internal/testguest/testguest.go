// Package testguest builds a small stand-in for the conversion module.
//
// The guest speaks the full host ABI: it accepts any document that starts
// with the zip local-file magic, renders a fixed single-page PDF and stamps
// the imported document's size into it (see Stamp), so tests can tell which
// document produced a given PDF. Behaviour switches are compiled in through
// Options.
package testguest

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"text/template"

	"github.com/wippyai/wasm-runtime/wat"
)

// StampPrefix starts the comment line carrying the document size.
const StampPrefix = "%wordsdk-doc "

const (
	zipMagic = 0x04034B50 // "PK\x03\x04" read as little-endian i32

	scratchOffset  = 16
	messagesOffset = 64
	pageSize       = 65536
)

// Messages reported by the guest.
const (
	MsgNotDocx    = "not a docx package"
	MsgNoDocument = "no document loaded"
	MsgRender     = "layout engine failure"
	MsgInit       = "license rejected"
	MsgOOM        = "out of memory"

	LogInit   = "converter initialised"
	LogImport = "document imported"
	LogRender = "pdf rendered"
)

//go:embed guest.wat.tmpl
var guestSource string

var guestTemplate = template.Must(template.New("guest").Parse(guestSource))

// Options selects guest behaviour.
type Options struct {
	// Streaming exports the incremental import entry points.
	Streaming bool
	// FailRender makes every export fail with status 4.
	FailRender bool
	// InitStatus is returned from wordsdk_init.
	InitStatus uint32
	// QueryFonts makes the guest call font_families while rendering and
	// exposes the raw response through the testguest_fonts export.
	QueryFonts bool
}

// Option configures the guest.
type Option func(*Options)

func WithStreaming() Option { return func(o *Options) { o.Streaming = true } }
func WithFailingRender() Option { return func(o *Options) { o.FailRender = true } }
func WithInitStatus(s uint32) Option { return func(o *Options) { o.InitStatus = s } }
func WithFontQuery() Option { return func(o *Options) { o.QueryFonts = true } }

type segment struct {
	Offset uint32
	Len    uint32
}

type dataSegment struct {
	Offset  uint32
	Escaped string
}

type layout struct {
	Options

	Pages       uint32
	Heap        uint32
	Magic       uint32
	Scratch     uint32
	StampOffset uint32
	Data        []dataSegment

	PDF           segment
	FontsRequest  segment
	ErrNotDocx    segment
	ErrNoDocument segment
	ErrRender     segment
	ErrInit       segment
	ErrOOM        segment
	LogInit       segment
	LogImport     segment
	LogRender     segment
}

// Source returns the WAT text of the guest.
func Source(opts ...Option) (string, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	l := layout{Options: o, Magic: zipMagic, Scratch: scratchOffset}
	next := uint32(messagesOffset)
	place := func(b []byte) segment {
		s := segment{Offset: next, Len: uint32(len(b))} //nolint:gosec // G115: guest data is small
		l.Data = append(l.Data, dataSegment{Offset: next, Escaped: escape(b)})
		next = align8(next + s.Len)
		return s
	}

	l.FontsRequest = place([]byte("{}"))
	l.ErrNotDocx = place([]byte(MsgNotDocx))
	l.ErrNoDocument = place([]byte(MsgNoDocument))
	l.ErrRender = place([]byte(MsgRender))
	l.ErrInit = place([]byte(MsgInit))
	l.ErrOOM = place([]byte(MsgOOM))
	l.LogInit = place([]byte(LogInit))
	l.LogImport = place([]byte(LogImport))
	l.LogRender = place([]byte(LogRender))

	pdf, stamp := PDFTemplate()
	l.PDF = place(pdf)
	l.StampOffset = uint32(stamp) //nolint:gosec // G115: template is small
	l.Heap = next
	l.Pages = l.Heap/pageSize + 1

	var b strings.Builder
	if err := guestTemplate.Execute(&b, l); err != nil {
		return "", fmt.Errorf("rendering guest source: %w", err)
	}
	return b.String(), nil
}

// Compile returns the guest as a WebAssembly binary.
func Compile(opts ...Option) ([]byte, error) {
	src, err := Source(opts...)
	if err != nil {
		return nil, err
	}
	bin, err := wat.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compiling guest: %w", err)
	}
	return bin, nil
}

// MustCompile is Compile for tests.
func MustCompile(tb testing.TB, opts ...Option) []byte {
	tb.Helper()
	bin, err := Compile(opts...)
	if err != nil {
		tb.Fatalf("testguest: %v", err)
	}
	return bin
}

// Stamp extracts the document size the guest wrote into pdf.
func Stamp(pdf []byte) (uint32, bool) {
	s := string(pdf)
	i := strings.Index(s, StampPrefix)
	if i < 0 || len(s) < i+len(StampPrefix)+8 {
		return 0, false
	}
	hex := s[i+len(StampPrefix) : i+len(StampPrefix)+8]
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func escape(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for _, c := range b {
		fmt.Fprintf(&sb, "\\%02x", c)
	}
	return sb.String()
}

func align8(n uint32) uint32 {
	return (n + 7) &^ 7
}

package wordsdk

import (
	"errors"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
)

// Lifecycle errors.
var (
	// ErrWorkerClosed is returned by every operation on a closed Worker.
	ErrWorkerClosed = errors.New("wordsdk: worker closed")

	// ErrStreamInUse is returned when a second stream of the same kind is
	// requested before the first one is closed.
	ErrStreamInUse = errors.New("wordsdk: stream already open")

	// ErrImportPending is returned by imports and exports attempted while an
	// import stream is open.
	ErrImportPending = errors.New("wordsdk: import stream still open")

	// ErrExportPending is returned by imports attempted while an export
	// stream is open, since the stream renders the document it was opened on.
	ErrExportPending = errors.New("wordsdk: export stream still open")

	// ErrStreamClosed is returned by reads and writes on a closed stream.
	ErrStreamClosed = errors.New("wordsdk: stream closed")
)

// ErrNoDocumentLoaded is returned by exports before a successful import.
var ErrNoDocumentLoaded = sdkerrors.ErrNoDocumentLoaded

package utils

import (
	"errors"         // Sentinel errors
	"io"             // Stream copy
	"mime/multipart" // Uploaded file headers
	"os"             // File creation
	"path/filepath"  // Path joining

	"github.com/gabriel-vasile/mimetype" // Content-based MIME detection
	"github.com/google/uuid"             // Random stored filenames
)

// MaxReceiptSize is the upload cap for receipt files (5 MB)
const MaxReceiptSize = 5 << 20

// ErrUnsupportedReceipt rejects receipts that are too large or of a
// disallowed type
var ErrUnsupportedReceipt = errors.New("unsupported receipt file")

// Accepted receipt MIME types
var allowedReceiptTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// SaveReceipt validates an uploaded receipt and stores it under uploadDir.
// The type check sniffs actual file content rather than trusting the
// client-declared Content-Type. Returns the stored path.
func SaveReceipt(fh *multipart.FileHeader, uploadDir string) (string, error) {
	if fh.Size > MaxReceiptSize {
		return "", ErrUnsupportedReceipt // Over the size cap
	}
	src, err := fh.Open() // Open the uploaded part
	if err != nil {
		return "", err
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src) // Sniff the real content type
	if err != nil {
		return "", err
	}
	ok := false
	for _, t := range allowedReceiptTypes {
		if mtype.Is(t) {
			ok = true
			break
		}
	}
	if !ok {
		return "", ErrUnsupportedReceipt // Disallowed type
	}
	// Rewind after sniffing so the full file gets copied
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", err // Ensure the storage directory exists
	}
	// Random stored name with the sniffed extension; never the client's name
	stored := filepath.Join(uploadDir, uuid.NewString()+mtype.Extension())
	dst, err := os.Create(stored)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(stored) // Drop the partial file
		return "", err
	}
	return stored, nil
}

package imaging

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
)

// AllowedExtensions is the upload extension allow-list.
var AllowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ExtensionAllowed reports whether the filename's extension may be uploaded.
func ExtensionAllowed(filename string) bool {
	return AllowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// StorageName derives the stored object name for an upload: a hex digest of
// the original filename and the upload timestamp, keeping the original
// extension. Deterministic for equal inputs.
func StorageName(filename string, uploadedAt time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	sum := md5.Sum([]byte(filename + uploadedAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:]) + ext
}

// ThumbName derives the thumbnail object name from a stored original name:
// same directory, "_thumb" suffix before the extension.
func ThumbName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_thumb" + ext
}

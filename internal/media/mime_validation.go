package media

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// allowedImageTypes maps accepted content types to the extension stored in
// the object name.
var allowedImageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

const allowedImageDescription = "PNG, JPEG, WebP, or GIF images"

// sniffImage detects the content type from the bytes themselves; the
// filename and client supplied header are not trusted.
func sniffImage(data []byte) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", fmt.Errorf("image is empty")
	}
	detected := mimetype.Detect(data)
	contentType = strings.ToLower(detected.String())
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", "", fmt.Errorf("unsupported content type %s; upload %s", contentType, allowedImageDescription)
	}
	return contentType, ext, nil
}

package utils

import (
	"bytes"

	"github.com/disintegration/imaging"
)

// ThumbnailSize is the bounding box of preview thumbnails
const ThumbnailSize = 128

// Thumbnail fits an image into ThumbnailSize and re-encodes it in the format
// implied by name. Smaller images keep their size.
func Thumbnail(data []byte, name string) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		format = imaging.PNG
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Fit(img, ThumbnailSize, ThumbnailSize, imaging.Lanczos), format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package scan

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Kind is the role a file plays inside a case folder.
type Kind int

const (
	KindOther Kind = iota
	KindPrimary
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindImage:
		return "image"
	}
	return "other"
}

var imageMIMEs = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/tiff": true,
}

var extKinds = map[string]Kind{
	".pdf":  KindPrimary,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".gif":  KindImage,
	".webp": KindImage,
	".bmp":  KindImage,
	".tif":  KindImage,
	".tiff": KindImage,
}

// Detect classifies a file by its magic bytes, falling back to the extension
// when the content cannot be read or is not recognized.
func Detect(path string) Kind {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		log.Debug().Str("file", path).Err(err).Msg("mime detection failed, using extension")
		return byExtension(path)
	}

	mimeType := mtype.String()
	switch {
	case mtype.Is("application/pdf"):
		return KindPrimary
	case imageMIMEs[baseMIME(mimeType)]:
		return KindImage
	}

	kind := byExtension(path)
	if kind != KindOther {
		log.Debug().Str("file", path).Str("mime", mimeType).Str("kind", kind.String()).Msg("unrecognized content, classified by extension")
	}
	return kind
}

func byExtension(path string) Kind {
	return extKinds[strings.ToLower(filepath.Ext(path))]
}

// baseMIME strips parameters such as "; charset=binary".
func baseMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.TrimSpace(m)
}

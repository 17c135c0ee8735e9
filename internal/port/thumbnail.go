package port

// Thumbnailer produces bounded-size previews for photo files. The core never
// generates thumbnails itself; deployments plug in an implementation.
type Thumbnailer interface {
	// Thumbnail renders a preview of the image at absPath no larger than
	// maxDim on either side, returning the encoded bytes and content type.
	Thumbnail(absPath string, maxDim int) ([]byte, string, error)
}

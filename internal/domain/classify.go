package domain

import (
	"path/filepath"
	"strings"
)

// EntryKind is the coarse type shown for a browsed directory entry.
type EntryKind string

const (
	EntryImage    EntryKind = "image"
	EntryVideo    EntryKind = "video"
	EntryPDF      EntryKind = "pdf"
	EntryDocument EntryKind = "document"
	EntryArchive  EntryKind = "archive"
	EntryFile     EntryKind = "file"
)

var entryKinds = map[string]EntryKind{
	".jpg": EntryImage, ".jpeg": EntryImage, ".png": EntryImage,
	".gif": EntryImage, ".webp": EntryImage, ".bmp": EntryImage,

	".mp4": EntryVideo, ".avi": EntryVideo, ".mov": EntryVideo,
	".mkv": EntryVideo, ".webm": EntryVideo,

	".pdf": EntryPDF,

	".doc": EntryDocument, ".docx": EntryDocument,
	".txt": EntryDocument, ".rtf": EntryDocument,

	".zip": EntryArchive, ".rar": EntryArchive, ".7z": EntryArchive,
	".tar": EntryArchive, ".gz": EntryArchive,
}

// ClassifyName maps a file name to its entry kind by extension.
func ClassifyName(name string) EntryKind {
	ext := strings.ToLower(filepath.Ext(name))
	if kind, ok := entryKinds[ext]; ok {
		return kind
	}
	return EntryFile
}

// photoExts are the extensions that classify a copied-in file as a photo.
var photoExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".heic": {},
}

// CategoryForName decides whether a file name belongs in the photo or the
// generic subtree.
func CategoryForName(name string) Category {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := photoExts[ext]; ok {
		return CategoryPhoto
	}
	return CategoryFile
}

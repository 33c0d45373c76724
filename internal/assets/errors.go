package assets

import "errors"

// Sentinel errors for asset operations.
var (
	// ErrStyleNotFound indicates the requested style does not exist.
	ErrStyleNotFound = errors.New("style not found")

	// ErrTemplateNotFound indicates the requested template does not exist.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidAssetName indicates the asset name contains invalid characters
	// such as path separators or traversal sequences.
	ErrInvalidAssetName = errors.New("invalid asset name")

	// ErrHighlightStyleNotFound indicates chroma has no style with the given name.
	ErrHighlightStyleNotFound = errors.New("highlight style not found")

	// ErrTemplateExecute indicates the page template failed to render.
	ErrTemplateExecute = errors.New("failed to render page template")
)

package loader

import (
	"context"
	"errors"

	"github.com/comicverse/unigraph/pkg/common"
)

type GraphFileType string

const (
	GraphFileTypeCharacters GraphFileType = "characters"
	GraphFileTypeArticle    GraphFileType = "article"
)

var (
	// ErrNotFound is returned by loaders when the requested file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrPageMissing marks an encyclopedia response for a page that does not exist.
	ErrPageMissing = errors.New("wiki page missing")
	// ErrOutsideRoot is returned for paths that are absolute or climb out of
	// the loader root.
	ErrOutsideRoot = errors.New("path outside loader root")
)

// GraphFile represents an input of the mention graph pipeline: either a
// character listing for one universe or the stored encyclopedia response
// for one character.
//
// The actual file content is retrieved via the associated GraphFileLoader.
type GraphFile struct {
	ID       string
	FilePath string
	FileType GraphFileType
	Universe common.Universe
	Loader   GraphFileLoader
}

// NewGraphFileParams defines the input parameters for creating a new GraphFile.
type NewGraphFileParams struct {
	ID       string
	FilePath string
	Loader   GraphFileLoader
}

// NewCharacterFile creates a GraphFile holding the character listing of
// one universe. Every row read from it is tagged with universe.
func NewCharacterFile(params NewGraphFileParams, universe common.Universe) GraphFile {
	return GraphFile{
		ID:       params.ID,
		FilePath: params.FilePath,
		FileType: GraphFileTypeCharacters,
		Universe: universe,
		Loader:   params.Loader,
	}
}

// NewArticleFile creates a GraphFile for the article of one character.
// ID should be the character identifier.
func NewArticleFile(params NewGraphFileParams) GraphFile {
	return GraphFile{
		ID:       params.ID,
		FilePath: params.FilePath,
		FileType: GraphFileTypeArticle,
		Loader:   params.Loader,
	}
}

// GetText retrieves the raw content of the file using its Loader.
//
// Example:
//
//	text, err := file.GetText(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(string(text))
func (f *GraphFile) GetText(ctx context.Context) ([]byte, error) {
	if f.Loader == nil {
		return nil, errors.New("graph file has no loader")
	}
	return f.Loader.GetFileText(ctx, *f)
}

// GraphFileLoader defines the interface for loading the contents of a GraphFile.
// Implementations may load files from disk, cloud storage, or other sources.
// A missing file is reported with an error wrapping ErrNotFound.
type GraphFileLoader interface {
	GetFileText(ctx context.Context, file GraphFile) ([]byte, error)
}

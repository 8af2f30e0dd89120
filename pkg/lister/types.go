package lister

import (
	"os"
)

type File struct {
	// SourcePath is the path to the source file.
	SourcePath string
	// DestinationPath is where the file will be copied to.
	DestinationPath string

	// FileInfo describes the content to copy. For symlinks it is the info of
	// the link target.
	FileInfo os.FileInfo
}

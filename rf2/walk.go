package rf2

import (
	"os"
	"path/filepath"
)

// Manifest is the set of importable RF2 files discovered under one or more
// root directories, grouped by file type.
type Manifest struct {
	Files     map[FileType][]string
	TotalSize int64
}

// Discover walks each root directory and classifies every regular file it
// finds against the known RF2 filename patterns. Files that don't match any
// pattern are silently skipped - a distribution zip commonly contains
// READMEs and other files alongside the RF2 files. Full, Snapshot and Delta
// variants are all recognised and returned.
func Discover(roots ...string) (*Manifest, error) {
	m := &Manifest{Files: make(map[FileType][]string)}
	for _, root := range roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			if ft, ok := Recognise(filepath.Base(path)); ok {
				m.Files[ft] = append(m.Files[ft], path)
				m.TotalSize += info.Size()
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// OrderedFileTypes returns the file types present in m, in import
// precedence order (concepts and descriptions before relationships and
// refsets, which reference them by id).
func (m *Manifest) OrderedFileTypes() []FileType {
	var result []FileType
	for _, ft := range AllFileTypes() {
		if len(m.Files[ft]) > 0 {
			result = append(result, ft)
		}
	}
	return result
}

package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WalkMIMIC lists the study reports of a MIMIC-CXR tree:
//
//	<root>/p10/p10000032/s50414267.txt
//
// Group folders are "p" plus two characters, patient folders start with "p"
// and study files match "s*.txt". Every level is visited in sorted order.
func WalkMIMIC(root string) (Source, error) {
	groups, err := listDirs(root, func(name string) bool {
		return strings.HasPrefix(name, "p") && len(name) == 3
	})
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, group := range groups {
		patients, err := listDirs(group, func(name string) bool {
			return strings.HasPrefix(name, "p")
		})
		if err != nil {
			return nil, err
		}

		for _, patient := range patients {
			studies, err := listFiles(patient, func(name string) bool {
				return strings.HasPrefix(name, "s") && strings.HasSuffix(name, ".txt")
			})
			if err != nil {
				return nil, err
			}
			paths = append(paths, studies...)
		}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no s*.txt studies under %s", ErrNoReports, root)
	}

	return &fileSource{paths: paths}, nil
}

// ReadDir lists the .txt reports directly inside dir, one report per file
func ReadDir(dir string) (Source, error) {
	paths, err := listFiles(dir, func(name string) bool {
		return strings.HasSuffix(name, ".txt")
	})
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: folder %s must contain at least one .txt file", ErrNoReports, dir)
	}

	return &fileSource{paths: paths}, nil
}

func isMIMIC(dir string) (bool, error) {
	groups, err := listDirs(dir, func(name string) bool {
		return strings.HasPrefix(name, "p") && len(name) == 3
	})
	if err != nil {
		return false, err
	}
	return len(groups) > 0, nil
}

func listDirs(dir string, keep func(string) bool) ([]string, error) {
	return list(dir, true, keep)
}

func listFiles(dir string, keep func(string) bool) ([]string, error) {
	return list(dir, false, keep)
}

func list(dir string, dirs bool, keep func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() != dirs || !keep(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(paths)
	return paths, nil
}

package commands

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed all:templates
var templateFS embed.FS

// copyTemplate copies an embedded template directory to the target path.
// Existing files are kept unless force is set.
func copyTemplate(templateName, targetDir string, force bool) error {
	root := path.Join("templates", templateName)

	return fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		if rel == "" {
			return nil
		}
		targetPath := filepath.Join(targetDir, filepath.FromSlash(renameSpecialFiles(rel)))

		if d.IsDir() {
			return os.MkdirAll(targetPath, 0750)
		}
		if !force {
			if _, err := os.Stat(targetPath); err == nil {
				return nil
			}
		}

		content, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		return os.WriteFile(targetPath, content, 0600)
	})
}

// renameSpecialFiles restores dotfiles, which embed would otherwise need
// escaping for.
func renameSpecialFiles(p string) string {
	dir, base := path.Split(p)
	switch base {
	case "gitignore":
		return dir + ".gitignore"
	default:
		return p
	}
}

// listTemplateFiles returns all files in a template for display purposes.
func listTemplateFiles(templateName string) ([]string, error) {
	var files []string
	root := path.Join("templates", templateName)

	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, renameSpecialFiles(strings.TrimPrefix(p, root+"/")))
		}
		return nil
	})

	return files, err
}

// groupTemplateFiles splits template files into configuration and data.
func groupTemplateFiles(files []string) map[string][]string {
	groups := map[string][]string{
		"config": {},
		"data":   {},
	}

	for _, f := range files {
		if strings.HasPrefix(f, "data/") {
			groups["data"] = append(groups["data"], f)
			continue
		}
		groups["config"] = append(groups["config"], f)
	}

	return groups
}

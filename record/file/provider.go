package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/poiesic/landvec/record"
)

// Provider serves source text from a directory of plain-text files named
// {entityID}.txt. A missing file means the entity has no text.
type Provider struct {
	dir string
}

// NewProvider creates a provider over the given directory.
func NewProvider(dir string) (*Provider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("text directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return &Provider{dir: dir}, nil
}

var _ record.SourceTextProvider = (*Provider)(nil)

// GetText reads {dir}/{entityID}.txt. A missing file yields "" without
// error.
func (p *Provider) GetText(ctx context.Context, entityID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.ContainsAny(entityID, `/\`) {
		return "", fmt.Errorf("invalid entity id %q", entityID)
	}

	data, err := os.ReadFile(filepath.Join(p.dir, entityID+".txt"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// ListIDs returns the entity IDs present in the directory, sorted.
func (p *Provider) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if id, ok := strings.CutSuffix(name, ".txt"); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

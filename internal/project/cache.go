package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"annovis/internal/annotation"
	"annovis/internal/history"
)

var slotFile = regexp.MustCompile(`^state_(\d+)\.json$`)

// CacheDir stores history slots as files in one directory per image:
// .annovis/<kind>/<project>/.cache/<image>/state_<n>.json. It implements
// history.SlotStore.
type CacheDir struct {
	dir string
}

var _ history.SlotStore = (*CacheDir)(nil)

func (s *Store) CacheDir(t annotation.Type, image string) (*CacheDir, error) {
	dir, err := kindDir(t)
	if err != nil {
		return nil, err
	}
	return &CacheDir{dir: filepath.Join(s.root, DirName, dir, s.name, ".cache", filepath.Base(image))}, nil
}

func (c *CacheDir) Path() string { return c.dir }

func (c *CacheDir) slot(n int) string {
	return filepath.Join(c.dir, fmt.Sprintf("state_%d.json", n))
}

func (c *CacheDir) WriteSlot(n int, state []byte) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := c.slot(n) + ".tmp"
	if err := os.WriteFile(tmp, state, 0644); err != nil {
		return fmt.Errorf("write cache slot: %w", err)
	}
	return os.Rename(tmp, c.slot(n))
}

func (c *CacheDir) ReadSlot(n int) ([]byte, error) {
	b, err := os.ReadFile(c.slot(n))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("slot %d: %w", n, history.ErrEmptySlot)
	}
	return b, err
}

// Rotate drops state_0 and renames state_<n> to state_<n-1>.
func (c *CacheDir) Rotate() error {
	slots, err := c.slots()
	if err != nil {
		return err
	}
	for _, n := range slots {
		if n == 0 {
			if err := os.Remove(c.slot(0)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("drop oldest cache slot: %w", err)
			}
			continue
		}
		if err := os.Rename(c.slot(n), c.slot(n-1)); err != nil {
			return fmt.Errorf("shift cache slot %d: %w", n, err)
		}
	}
	return nil
}

// slots returns the slot numbers on disk in ascending order.
func (c *CacheDir) slots() ([]int, error) {
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list cache dir: %w", err)
	}
	var out []int
	for _, e := range entries {
		m := slotFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

// Clear removes the directory and every slot in it.
func (c *CacheDir) Clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("remove cache dir: %w", err)
	}
	return nil
}

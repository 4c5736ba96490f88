package checkpoints

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// RunFiles is the pair of artifacts a training run maintains: the model
// checkpoint and the epoch-by-epoch history log.
type RunFiles struct {
	Checkpoint string
	History    string
}

// RunFilesFor returns the conventional artifact paths for a model under dir.
func RunFilesFor(dir, modelName string) RunFiles {
	return RunFiles{
		Checkpoint: filepath.Join(dir, fmt.Sprintf("trained_model_%s.h5", modelName)),
		History:    filepath.Join(dir, fmt.Sprintf("training_history_%s.csv", modelName)),
	}
}

// BothExist reports whether both files of the pair are present. A run can
// only resume when the pair is complete; a lone survivor means the previous
// run was interrupted mid-write.
func (r RunFiles) BothExist() bool {
	return fileExists(r.Checkpoint) && fileExists(r.History)
}

// Remove deletes whichever files of the pair exist.
func (r RunFiles) Remove() error {
	for _, path := range []string{r.Checkpoint, r.History} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %v", path, err)
		}
	}
	return nil
}

// Backup copies both files to numbered backup paths and returns the new
// pair. Backup numbering starts at 0 for the pre-training state.
func (r RunFiles) Backup(n int) (RunFiles, error) {
	backup := RunFiles{
		Checkpoint: BackupPath(r.Checkpoint, n),
		History:    BackupPath(r.History, n),
	}
	if err := copyFile(r.Checkpoint, backup.Checkpoint); err != nil {
		return RunFiles{}, err
	}
	if err := copyFile(r.History, backup.History); err != nil {
		return RunFiles{}, err
	}
	return backup, nil
}

// Restore copies this pair's files over dst, making a backup the live run
// state again.
func (r RunFiles) Restore(dst RunFiles) error {
	if err := copyFile(r.Checkpoint, dst.Checkpoint); err != nil {
		return err
	}
	return copyFile(r.History, dst.History)
}

// BackupPath inserts a numbered backup marker before the file extension:
// model.h5 becomes model_backup3.h5.
func BackupPath(path string, n int) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_backup%d%s", base, n, ext)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %v", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %v", src, dst, err)
	}
	return out.Sync()
}

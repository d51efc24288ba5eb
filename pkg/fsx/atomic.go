package fsx

// AtomicWriteFile implements the write protocol spec.md §6.1 and §6.2
// both specify for the ledger and overlay documents: write to a sibling
// ".tmp" file, fsync, rename the previous primary to ".bak", then
// rename ".tmp" over the primary.
func AtomicWriteFile(fs FS, path string, data []byte) error {
	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := fs.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := fs.Sync(tmp); err != nil {
		return err
	}
	if _, err := fs.Stat(path); err == nil {
		_ = fs.Remove(bak)
		if err := fs.Rename(path, bak); err != nil {
			return err
		}
	}
	return fs.Rename(tmp, path)
}

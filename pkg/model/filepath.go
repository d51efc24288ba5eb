package model

import "strings"

// FilePath is a slash-normalized, case-insensitive path relative to the
// game data root. All ledger keys are folded to canonical (lower) case;
// the as-written casing is kept separately, on VirtualLink.VirtualPath
// and in the ledger's in-memory display-path map used for restores.
type FilePath string

// NormalizeFilePath folds separators to forward slashes and case to
// lower, matching the Rust IniEdit's case-insensitive comparison
// (original_source/crates/nmm-core/src/install_log.rs).
func NormalizeFilePath(p string) FilePath {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.ToLower(p)
	return FilePath(p)
}

func (p FilePath) String() string { return string(p) }

// IniKey identifies a single INI file/section/key triple. File and
// Section and Key are all folded case-insensitively, mirroring the
// original implementation's IniEdit equality.
type IniKey struct {
	File    string
	Section string
	Key     string
}

// NormalizeIniKey lower-cases every component so two keys differing
// only by case compare equal, per IniEdit's PartialEq/Hash/Ord impls.
func NormalizeIniKey(file, section, key string) IniKey {
	return IniKey{
		File:    strings.ToLower(file),
		Section: strings.ToLower(section),
		Key:     strings.ToLower(key),
	}
}

// String renders "file[section].key", matching IniEdit's Display impl.
func (k IniKey) String() string {
	return k.File + "[" + k.Section + "]." + k.Key
}

package ledger

import (
	"encoding/base64"
	"strconv"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/beevik/etree"

	"github.com/modforge/modforge/pkg/fsx"
	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/model"
	"github.com/modforge/modforge/pkg/stack"
)

// installLogVersion is the document's declared fileVersion, spec.md §6.1.
const installLogVersion = "0.5.0.0"

// Save persists the ledger to its primary path using the atomic-rename
// write protocol. Callers hold the advisory lock (Lock/Unlock) for the
// duration of the write, per spec.md §5.
func (l *Ledger) Save() error {
	l.mu.RLock()
	doc := l.encode()
	l.mu.RUnlock()

	data, err := doc.WriteToBytes()
	if err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "serializing install log")
	}
	if err := fsx.AtomicWriteFile(l.fs, l.primaryPath, data); err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "writing install log")
	}
	return nil
}

// Backup copies the current on-disk primary to a rotated backup path
// before Save overwrites it, per spec.md §4.2's backup() operation.
func (l *Ledger) Backup(backupPath string) error {
	data, err := l.fs.ReadFile(l.primaryPath)
	if err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "reading install log for backup")
	}
	if err := l.fs.WriteFile(backupPath, data, 0644); err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "writing install log backup")
	}
	return nil
}

// Load reads and replaces the ledger's in-memory state from its primary
// path.
func (l *Ledger) Load() error {
	data, err := l.fs.ReadFile(l.primaryPath)
	if err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "reading install log")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "parsing install log")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.decode(doc)
}

func (l *Ledger) encode() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("installLog")
	root.CreateAttr("fileVersion", installLogVersion)

	modList := root.CreateElement("modList")
	// The pseudo-key for OriginalValues appears first when present.
	if mod, ok := l.mods[model.OriginalValuesKey]; ok {
		encodeMod(modList, mod)
	}
	for key, mod := range l.mods {
		if key == model.OriginalValuesKey {
			continue
		}
		encodeMod(modList, mod)
	}

	dataFiles := root.CreateElement("dataFiles")
	for path, s := range l.files {
		fileEl := dataFiles.CreateElement("file")
		fileEl.CreateAttr("path", string(path))
		installing := fileEl.CreateElement("installingMods")
		for _, e := range s.Entries() {
			modEl := installing.CreateElement("mod")
			modEl.CreateAttr("key", string(e.Key))
			if e.Value.BackupHash != "" {
				modEl.CreateAttr("backupHash", e.Value.BackupHash)
			}
		}
	}

	iniEdits := root.CreateElement("iniEdits")
	for ik, s := range l.iniEdits {
		iniEl := iniEdits.CreateElement("ini")
		iniEl.CreateAttr("file", ik.File)
		iniEl.CreateAttr("section", ik.Section)
		iniEl.CreateAttr("key", ik.Key)
		installing := iniEl.CreateElement("installingMods")
		for _, e := range s.Entries() {
			modEl := installing.CreateElement("mod")
			modEl.CreateAttr("key", string(e.Key))
			modEl.SetText(e.Value)
		}
	}

	gameEdits := root.CreateElement("gameSpecificEdits")
	for name, s := range l.gameValues {
		valEl := gameEdits.CreateElement("value")
		valEl.CreateAttr("name", name)
		installing := valEl.CreateElement("installingMods")
		for _, e := range s.Entries() {
			modEl := installing.CreateElement("mod")
			modEl.CreateAttr("key", string(e.Key))
			modEl.SetText(base64.StdEncoding.EncodeToString(e.Value))
		}
	}

	return doc
}

func encodeMod(parent *etree.Element, mod model.Mod) {
	modEl := parent.CreateElement("mod")
	modEl.CreateAttr("path", mod.ArchivePath)
	modEl.CreateAttr("key", string(mod.Key))

	versionEl := modEl.CreateElement("version")
	if mod.MachineVersion != nil {
		versionEl.CreateAttr("machineVersion", mod.MachineVersion.String())
	}
	versionEl.SetText(mod.HumanVersion)

	modEl.CreateElement("name").SetText(mod.DisplayName)
	modEl.CreateElement("installDate").SetText(mod.InstallDate.UTC().Format(time.RFC3339))

	// nmm-core::ModInfo round-trip fields, spec.md §9.1. Empty/zero
	// values are omitted rather than written out, keeping the document
	// unchanged for mods installed without this metadata.
	if mod.DownloadID != "" {
		modEl.CreateElement("downloadId").SetText(mod.DownloadID)
	}
	if mod.Author != "" {
		modEl.CreateElement("author").SetText(mod.Author)
	}
	if mod.Description != "" {
		modEl.CreateElement("description").SetText(mod.Description)
	}
	if mod.CategoryID != 0 {
		modEl.CreateElement("categoryId").SetText(strconv.Itoa(mod.CategoryID))
	}
	if mod.Website != "" {
		modEl.CreateElement("website").SetText(mod.Website)
	}
	if mod.DownloadDate != nil {
		modEl.CreateElement("downloadDate").SetText(mod.DownloadDate.UTC().Format(time.RFC3339))
	}
	if mod.IsEndorsed {
		modEl.CreateElement("isEndorsed").SetText("true")
	}
	if mod.LoadOrder != 0 {
		modEl.CreateElement("loadOrder").SetText(strconv.Itoa(mod.LoadOrder))
	}
}

func (l *Ledger) decode(doc *etree.Document) error {
	root := doc.SelectElement("installLog")
	if root == nil {
		return merr.New(merr.ErrLedgerIO, "missing installLog root element")
	}

	mods := make(map[model.ModKey]model.Mod)
	if modList := root.SelectElement("modList"); modList != nil {
		for _, modEl := range modList.SelectElements("mod") {
			mod := decodeMod(modEl)
			mods[mod.Key] = mod
		}
	}

	files := make(map[model.FilePath]*stack.Stack[FileValue])
	if dataFiles := root.SelectElement("dataFiles"); dataFiles != nil {
		for _, fileEl := range dataFiles.SelectElements("file") {
			path := model.FilePath(fileEl.SelectAttrValue("path", ""))
			s := &stack.Stack[FileValue]{}
			if installing := fileEl.SelectElement("installingMods"); installing != nil {
				for _, modEl := range installing.SelectElements("mod") {
					key := model.ModKey(modEl.SelectAttrValue("key", ""))
					s.Push(key, FileValue{BackupHash: modEl.SelectAttrValue("backupHash", "")})
				}
			}
			files[path] = s
		}
	}

	iniEdits := make(map[model.IniKey]*stack.Stack[string])
	if iniList := root.SelectElement("iniEdits"); iniList != nil {
		for _, iniEl := range iniList.SelectElements("ini") {
			ik := model.NormalizeIniKey(
				iniEl.SelectAttrValue("file", ""),
				iniEl.SelectAttrValue("section", ""),
				iniEl.SelectAttrValue("key", ""),
			)
			s := &stack.Stack[string]{}
			if installing := iniEl.SelectElement("installingMods"); installing != nil {
				for _, modEl := range installing.SelectElements("mod") {
					key := model.ModKey(modEl.SelectAttrValue("key", ""))
					s.Push(key, modEl.Text())
				}
			}
			iniEdits[ik] = s
		}
	}

	gameValues := make(map[string]*stack.Stack[[]byte])
	if gameList := root.SelectElement("gameSpecificEdits"); gameList != nil {
		for _, valEl := range gameList.SelectElements("value") {
			name := valEl.SelectAttrValue("name", "")
			s := &stack.Stack[[]byte]{}
			if installing := valEl.SelectElement("installingMods"); installing != nil {
				for _, modEl := range installing.SelectElements("mod") {
					key := model.ModKey(modEl.SelectAttrValue("key", ""))
					raw, _ := base64.StdEncoding.DecodeString(modEl.Text())
					s.Push(key, raw)
				}
			}
			gameValues[name] = s
		}
	}

	l.mods = mods
	l.files = files
	l.iniEdits = iniEdits
	l.gameValues = gameValues
	for key := range mods {
		l.keyGen.Observe(key)
	}
	return nil
}

func decodeMod(modEl *etree.Element) model.Mod {
	mod := model.Mod{
		Key:         model.ModKey(modEl.SelectAttrValue("key", "")),
		ArchivePath: modEl.SelectAttrValue("path", ""),
	}
	if versionEl := modEl.SelectElement("version"); versionEl != nil {
		mod.HumanVersion = versionEl.Text()
		if raw := versionEl.SelectAttrValue("machineVersion", ""); raw != "" {
			if v, err := semver.NewVersion(raw); err == nil {
				mod.MachineVersion = v
			}
		}
	}
	if nameEl := modEl.SelectElement("name"); nameEl != nil {
		mod.DisplayName = nameEl.Text()
	}
	if dateEl := modEl.SelectElement("installDate"); dateEl != nil {
		if t, err := time.Parse(time.RFC3339, dateEl.Text()); err == nil {
			mod.InstallDate = t
		}
	}

	if el := modEl.SelectElement("downloadId"); el != nil {
		mod.DownloadID = el.Text()
	}
	if el := modEl.SelectElement("author"); el != nil {
		mod.Author = el.Text()
	}
	if el := modEl.SelectElement("description"); el != nil {
		mod.Description = el.Text()
	}
	if el := modEl.SelectElement("categoryId"); el != nil {
		if n, err := strconv.Atoi(el.Text()); err == nil {
			mod.CategoryID = n
		}
	}
	if el := modEl.SelectElement("website"); el != nil {
		mod.Website = el.Text()
	}
	if el := modEl.SelectElement("downloadDate"); el != nil {
		if t, err := time.Parse(time.RFC3339, el.Text()); err == nil {
			mod.DownloadDate = &t
		}
	}
	if el := modEl.SelectElement("isEndorsed"); el != nil {
		mod.IsEndorsed = el.Text() == "true"
	}
	if el := modEl.SelectElement("loadOrder"); el != nil {
		if n, err := strconv.Atoi(el.Text()); err == nil {
			mod.LoadOrder = n
		}
	}

	return mod
}

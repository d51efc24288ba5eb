package vma

import (
	"strconv"

	"github.com/beevik/etree"

	"github.com/modforge/modforge/pkg/fsx"
	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/model"
)

// overlayVersion is the document's declared fileVersion, spec.md §6.2.
const overlayVersion = "0.3.0.0"

// Save persists the VirtualLink set and VirtualModInfo collection to
// path using the same atomic-rename write protocol as the ledger.
func (a *Activator) Save(path string) error {
	a.mu.RLock()
	doc := a.encode()
	a.mu.RUnlock()

	data, err := doc.WriteToBytes()
	if err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "serializing overlay document")
	}
	if err := fsx.AtomicWriteFile(a.fs, path, data); err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "writing overlay document")
	}
	return nil
}

// Load replaces the Activator's link set, mod info and mod states from
// path. It does not reconcile against the live game directory: each
// link's persisted isActive flag is taken as is, and a mod is restored
// as Active only if at least one of its links is marked active.
func (a *Activator) Load(path string) error {
	data, err := a.fs.ReadFile(path)
	if err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "reading overlay document")
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "parsing overlay document")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.decode(doc)
}

func (a *Activator) encode() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("virtualModActivator")
	root.CreateAttr("fileVersion", overlayVersion)
	modList := root.CreateElement("modList")

	infos := make(map[model.ModKey]VirtualModInfo, len(a.modInfo))
	for key, info := range a.modInfo {
		infos[key] = info
	}
	// A mod that holds links but was never staged still gets a modInfo
	// element, so none of its links are dropped from the document.
	for _, list := range a.links {
		for _, l := range list {
			if _, ok := infos[l.ModKey]; !ok {
				infos[l.ModKey] = VirtualModInfo{ModKey: l.ModKey}
			}
		}
	}

	for key, info := range infos {
		modEl := modList.CreateElement("modInfo")
		modEl.CreateAttr("modId", string(key))
		modEl.CreateAttr("downloadId", info.DownloadID)
		modEl.CreateAttr("modName", info.DisplayName)
		modEl.CreateAttr("modFileName", info.ArchiveFileName)
		modEl.CreateAttr("modFilePath", info.ArchivePath)
		modEl.CreateAttr("FileVersion", info.FileVersion)

		for _, list := range a.links {
			for _, l := range list {
				if l.ModKey != key {
					continue
				}
				linkEl := modEl.CreateElement("fileLink")
				linkEl.CreateAttr("realPath", l.RealPath)
				linkEl.CreateAttr("virtualPath", l.VirtualPath)
				linkEl.CreateElement("linkPriority").SetText(strconv.Itoa(l.Priority))
				linkEl.CreateElement("isActive").SetText(strconv.FormatBool(l.IsActive))
				linkEl.CreateElement("insertionOrder").SetText(strconv.FormatInt(l.insertionOrder, 10))
			}
		}
	}

	return doc
}

func (a *Activator) decode(doc *etree.Document) error {
	root := doc.SelectElement("virtualModActivator")
	if root == nil {
		return merr.New(merr.ErrLedgerIO, "missing virtualModActivator root element")
	}

	modInfo := make(map[model.ModKey]VirtualModInfo)
	links := make(map[string][]*VirtualLink)
	var maxInsertion int64

	modList := root.SelectElement("modList")
	if modList == nil {
		a.modInfo, a.links = modInfo, links
		return nil
	}

	for _, modEl := range modList.SelectElements("modInfo") {
		key := model.ModKey(modEl.SelectAttrValue("modId", ""))
		modInfo[key] = VirtualModInfo{
			ModKey:          key,
			DownloadID:      modEl.SelectAttrValue("downloadId", ""),
			DisplayName:     modEl.SelectAttrValue("modName", ""),
			ArchiveFileName: modEl.SelectAttrValue("modFileName", ""),
			ArchivePath:     modEl.SelectAttrValue("modFilePath", ""),
			FileVersion:     modEl.SelectAttrValue("FileVersion", ""),
		}

		for _, linkEl := range modEl.SelectElements("fileLink") {
			priority := 0
			if pEl := linkEl.SelectElement("linkPriority"); pEl != nil {
				priority, _ = strconv.Atoi(pEl.Text())
			}
			active := false
			if aEl := linkEl.SelectElement("isActive"); aEl != nil {
				active, _ = strconv.ParseBool(aEl.Text())
			}
			// insertionOrder is read back verbatim, not re-derived from
			// document order: encode walks a.modInfo/a.links, both maps,
			// so document order does not reproduce the original
			// insertion sequence the priority tie-break depends on
			// (spec.md §4.3, §8 property 3).
			var insertionOrder int64
			if oEl := linkEl.SelectElement("insertionOrder"); oEl != nil {
				insertionOrder, _ = strconv.ParseInt(oEl.Text(), 10, 64)
			}
			if insertionOrder > maxInsertion {
				maxInsertion = insertionOrder
			}
			virtualPath := linkEl.SelectAttrValue("virtualPath", "")
			link := &VirtualLink{
				ModKey:         key,
				RealPath:       linkEl.SelectAttrValue("realPath", ""),
				VirtualPath:    virtualPath,
				Priority:       priority,
				IsActive:       active,
				insertionOrder: insertionOrder,
			}
			mapKey := normVirtualPath(virtualPath)
			links[mapKey] = append(links[mapKey], link)
		}
	}

	state := make(map[model.ModKey]State, len(modInfo))
	for key := range modInfo {
		state[key] = Staged
	}
	for _, list := range links {
		for _, l := range list {
			if l.IsActive {
				state[l.ModKey] = Active
			}
		}
	}

	a.modInfo = modInfo
	a.links = links
	a.state = state
	a.insertionCounter = maxInsertion
	return nil
}

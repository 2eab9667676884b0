package mappings

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/depview/maplet"
	"github.com/viant/depview/naming"
	"github.com/viant/depview/repr"
	"github.com/viant/depview/storage"
)

// Dump section names, also used as file names by DumpTo.
const (
	ClassToSubclassesSection      = "ClassToSubclasses"
	ClassToClassDependencySection = "ClassToClassDependency"
	SourceFileToClassesSection    = "SourceFileToClasses"
	ClassToSourceFileSection      = "ClassToSourceFile"
	ShortClassNameIndexSection    = "ShortClassNameIndex"
)

type dumpSection struct {
	name  string
	lines func() map[string][]string
}

func (m *Mappings) dumpSections() []dumpSection {
	ret := []dumpSection{
		{ClassToSubclassesSection, func() map[string][]string { return m.namesEntries(m.classToSubclasses) }},
		{ClassToClassDependencySection, func() map[string][]string { return m.namesEntries(m.classToClass) }},
		{SourceFileToClassesSection, m.sourceEntries},
		{ClassToSourceFileSection, m.classSourceEntries},
	}
	if m.shortNames.MultiMaplet != nil {
		ret = append(ret, dumpSection{ShortClassNameIndexSection, func() map[string][]string { return m.namesEntries(m.shortNames) }})
	}
	return ret
}

func (m *Mappings) namesEntries(index maplet.IntIntMultiMaplet) map[string][]string {
	ret := map[string][]string{}
	index.ForEachEntry(func(key naming.Name, values []naming.Name) bool {
		for _, v := range values {
			ret[m.ctx.Value(key)] = append(ret[m.ctx.Value(key)], m.ctx.Value(v))
		}
		return true
	})
	return ret
}

func (m *Mappings) sourceEntries() map[string][]string {
	ret := map[string][]string{}
	m.sourceToClass.ForEachEntry(func(source string, reprs []repr.ClassFileRepr) bool {
		values := make([]string, 0, len(reprs))
		for _, r := range reprs {
			values = append(values, m.ctx.Value(r.ID()))
		}
		ret[source] = values
		return true
	})
	return ret
}

func (m *Mappings) classSourceEntries() map[string][]string {
	ret := map[string][]string{}
	m.classToSource.ForEachEntry(func(key naming.Name, sources []string) bool {
		ret[m.ctx.Value(key)] = append([]string{}, sources...)
		return true
	})
	return ret
}

func writeSection(w io.Writer, name string, entries map[string][]string) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if _, err := fmt.Fprintf(w, "begin of %v\n", name); err != nil {
		return err
	}
	for _, k := range keys {
		values := entries[k]
		sort.Strings(values)
		if _, err := fmt.Fprintf(w, "  %v ->\n", k); err != nil {
			return err
		}
		for _, v := range values {
			if _, err := fmt.Fprintf(w, "    %v\n", v); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "end of %v\n", name)
	return err
}

// ToStream writes every index in a deterministic human readable form.
func (m *Mappings) ToStream(w io.Writer) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer storage.Recover(&err)
	out := bufio.NewWriter(w)
	for _, section := range m.dumpSections() {
		if err = writeSection(out, section.name, section.lines()); err != nil {
			return err
		}
	}
	return out.Flush()
}

// DumpTo writes one file per index under baseURL.
func (m *Mappings) DumpTo(ctx context.Context, fs afs.Service, baseURL string) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer storage.Recover(&err)
	for _, section := range m.dumpSections() {
		buf := &bytes.Buffer{}
		if err = writeSection(buf, section.name, section.lines()); err != nil {
			return err
		}
		URL := url.Join(baseURL, section.name+".txt")
		if err = fs.Upload(ctx, URL, file.DefaultFileOsMode, buf); err != nil {
			return fmt.Errorf("failed to write %v: %w", URL, err)
		}
	}
	return nil
}

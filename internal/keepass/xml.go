package keepass

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// frame: открытый XML-элемент. Для Group и Entry хранит созданный узел.
type frame struct {
	name      string
	protected bool
	group     *Group
	entry     *Entry
}

type treeParser struct {
	stream protectedStream
	db     *Database
	frames []frame
	text   []byte

	key, value string
	headerHash []byte
}

// parseTree строит дерево из XML-документа KeePassFile. Защищённые значения
// расшифровываются по мере их появления в документе.
func parseTree(data []byte, stream protectedStream) (*Database, []byte, error) {
	p := &treeParser{stream: stream, db: &Database{}}
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, wrap(ErrOpenFailed, "xml: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			p.start(t)
		case xml.EndElement:
			if err := p.end(); err != nil {
				return nil, nil, err
			}
		case xml.CharData:
			p.text = append(p.text, t...)
		}
	}
	if p.db.Root == nil {
		p.db.Root = &Group{}
	}
	return p.db, p.headerHash, nil
}

func (p *treeParser) parent() *frame {
	if len(p.frames) == 0 {
		return nil
	}
	return &p.frames[len(p.frames)-1]
}

func (p *treeParser) parentName() string {
	if f := p.parent(); f != nil {
		return f.name
	}
	return ""
}

// entryOwner ищет ближайшую открытую запись (для History).
func (p *treeParser) entryOwner() *Entry {
	for i := len(p.frames) - 1; i >= 0; i-- {
		if p.frames[i].entry != nil {
			return p.frames[i].entry
		}
	}
	return nil
}

func (p *treeParser) start(t xml.StartElement) {
	f := frame{name: t.Name.Local}
	for _, a := range t.Attr {
		if a.Name.Local == "Protected" && strings.EqualFold(a.Value, "true") {
			f.protected = true
		}
	}

	parent := p.parent()
	switch {
	case f.name == "Group" && parent != nil && parent.name == "Root":
		f.group = &Group{}
		if p.db.Root == nil {
			p.db.Root = f.group
		}
	case f.name == "Group" && parent != nil && parent.group != nil:
		f.group = &Group{}
		parent.group.Groups = append(parent.group.Groups, f.group)
	case f.name == "Entry" && parent != nil && parent.group != nil:
		f.entry = NewEntry(UUID{})
		parent.group.Entries = append(parent.group.Entries, f.entry)
	case f.name == "Entry" && parent != nil && parent.name == "History":
		if owner := p.entryOwner(); owner != nil {
			f.entry = NewEntry(UUID{})
			owner.History = append(owner.History, f.entry)
		}
	case f.name == "String" && parent != nil && parent.entry != nil:
		p.key, p.value = "", ""
	}

	p.frames = append(p.frames, f)
	p.text = p.text[:0]
}

func (p *treeParser) end() error {
	f := p.frames[len(p.frames)-1]
	p.frames = p.frames[:len(p.frames)-1]

	text := string(p.text)
	p.text = p.text[:0]
	if f.protected {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
		if err != nil {
			return wrap(ErrOpenFailed, "protected value in <%s> is not base64", f.name)
		}
		p.stream.XORKeyStream(raw, raw)
		text = string(raw)
	}

	parent := p.parent()
	if parent == nil {
		return nil
	}
	switch f.name {
	case "Name":
		if parent.group != nil {
			parent.group.Name = text
		}
	case "UUID":
		if parent.group == nil && parent.entry == nil {
			break
		}
		id, err := decodeUUID(text)
		if err != nil {
			return err
		}
		if parent.group != nil {
			parent.group.UUID = id
		} else {
			parent.entry.UUID = id
		}
	case "Key":
		if parent.name == "String" {
			p.key = text
		}
	case "Value":
		if parent.name == "String" {
			p.value = text
		}
	case "String":
		if parent.entry != nil {
			parent.entry.Fields[p.key] = p.value
		}
	case "Generator":
		if parent.name == "Meta" {
			p.db.Generator = text
		}
	case "HeaderHash":
		if parent.name == "Meta" {
			sum, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
			if err != nil {
				return wrap(ErrOpenFailed, "header hash is not base64")
			}
			p.headerHash = sum
		}
	}
	return nil
}

func decodeUUID(text string) (UUID, error) {
	var id UUID
	text = strings.TrimSpace(text)
	if text == "" {
		return id, nil
	}
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil || len(raw) != len(id) {
		return id, wrap(ErrOpenFailed, "bad uuid %q", text)
	}
	copy(id[:], raw)
	return id, nil
}

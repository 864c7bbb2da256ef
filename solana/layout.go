package solana_chainlink

import (
	"encoding/json"
	"fmt"
)

// FieldKind tags the primitive type of a layout field.
type FieldKind int

const (
	KindBool FieldKind = iota + 1
	KindU8
	KindI8
	KindU16
	KindI16
	KindU32
	KindI32
	KindU64
	KindI64
	KindU128
	KindI128
	KindPublicKey
)

var fieldKindNames = map[string]FieldKind{
	"bool":      KindBool,
	"u8":        KindU8,
	"i8":        KindI8,
	"u16":       KindU16,
	"i16":       KindI16,
	"u32":       KindU32,
	"i32":       KindI32,
	"u64":       KindU64,
	"i64":       KindI64,
	"u128":      KindU128,
	"i128":      KindI128,
	"publicKey": KindPublicKey,
	"pubkey":    KindPublicKey,
}

// Width is the fixed Borsh encoded size of the kind in bytes.
func (k FieldKind) Width() int {
	switch k {
	case KindBool, KindU8, KindI8:
		return 1
	case KindU16, KindI16:
		return 2
	case KindU32, KindI32:
		return 4
	case KindU64, KindI64:
		return 8
	case KindU128, KindI128:
		return 16
	case KindPublicKey:
		return 32
	default:
		return 0
	}
}

func (k FieldKind) Signed() bool {
	switch k {
	case KindI8, KindI16, KindI32, KindI64, KindI128:
		return true
	}
	return false
}

func (k FieldKind) String() string {
	for name, kind := range fieldKindNames {
		if kind == k && name != "pubkey" {
			return name
		}
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

func parseFieldKind(raw json.RawMessage) (FieldKind, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return 0, fmt.Errorf("unsupported non-primitive field type %s", string(raw))
	}
	kind, ok := fieldKindNames[name]
	if !ok {
		return 0, fmt.Errorf("unsupported field type %q", name)
	}
	return kind, nil
}

// Field is one fixed-width field of an account layout.
type Field struct {
	Name string
	Kind FieldKind
}

// Layout describes how an account's raw bytes are laid out: an 8-byte Anchor
// discriminator followed by the fields, in order, then zero padding up to Space.
type Layout struct {
	Name          string
	Discriminator [8]byte
	Fields        []Field

	// Space is the allocated size of the account. Zero means the account is exactly
	// as large as its packed fields.
	Space int
}

// PackedSize is the discriminator plus the encoded width of every field.
func (l Layout) PackedSize() int {
	size := 8
	for _, f := range l.Fields {
		size += f.Kind.Width()
	}
	return size
}

// Size is the byte length an account with this layout must have.
func (l Layout) Size() int {
	if l.Space > 0 {
		return l.Space
	}
	return l.PackedSize()
}

// WithSpace returns a copy of the layout sized for an account allocated with space bytes.
func (l Layout) WithSpace(space int) Layout {
	l.Space = space
	l.Fields = append([]Field(nil), l.Fields...)
	return l
}

func (l Layout) fieldIndex(name string) int {
	for i, f := range l.Fields {
		if sameName(f.Name, name) {
			return i
		}
	}
	return -1
}

// Layout builds the fixed layout of the named account type. The discriminator is taken
// from the IDL when present and otherwise derived as sha256("account:<Name>")[:8].
func (idl *IDL) Layout(accountName string) (Layout, error) {
	def, err := idl.accountDefinition(accountName)
	if err != nil {
		return Layout{}, err
	}
	if def.Type.Kind != "struct" {
		return Layout{}, schemaMismatch("account %q is a %q, only structs are supported", def.Name, def.Type.Kind)
	}

	layout := Layout{Name: def.Name}
	if len(def.Discriminator) == 8 {
		copy(layout.Discriminator[:], def.Discriminator)
	} else {
		layout.Discriminator = sighash("account", def.Name)
	}

	for _, f := range def.Type.Fields {
		kind, err := parseFieldKind(f.Type)
		if err != nil {
			return Layout{}, schemaMismatch("account %q field %q: %v", def.Name, f.Name, err)
		}
		layout.Fields = append(layout.Fields, Field{Name: f.Name, Kind: kind})
	}
	return layout, nil
}

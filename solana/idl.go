package solana_chainlink

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// IDL is the interface description of an Anchor program. Both the legacy layout
// (isMut/isSigner, no discriminators) and the 0.30 layout (writable/signer, explicit
// discriminators, struct bodies under "types") are accepted.
type IDL struct {
	Version      string              `json:"version"`
	Name         string              `json:"name"`
	Address      string              `json:"address"`
	Metadata     IDLMetadata         `json:"metadata"`
	Instructions []IDLInstruction    `json:"instructions"`
	Accounts     []IDLTypeDefinition `json:"accounts"`
	Events       []IDLEvent          `json:"events"`
	Types        []IDLTypeDefinition `json:"types"`
	Errors       []IDLError          `json:"errors"`
}

type IDLMetadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Address string `json:"address"`
}

type IDLInstruction struct {
	Name          string       `json:"name"`
	Discriminator []byte       `json:"discriminator"`
	Args          []IDLField   `json:"args"`
	Accounts      []IDLAccount `json:"accounts"`
}

type IDLEvent struct {
	Name          string     `json:"name"`
	Discriminator []byte     `json:"discriminator"`
	Fields        []IDLField `json:"fields"`
}

type IDLField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

// IDLAccount is one account role of an instruction. Composite roles carry nested Accounts.
type IDLAccount struct {
	Name     string       `json:"name"`
	IsMut    bool         `json:"isMut"`
	IsSigner bool         `json:"isSigner"`
	Writable bool         `json:"writable"`
	Signer   bool         `json:"signer"`
	Address  string       `json:"address,omitempty"`
	Accounts []IDLAccount `json:"accounts,omitempty"`
}

type IDLTypeDefinition struct {
	Name          string `json:"name"`
	Discriminator []byte `json:"discriminator"`
	Type          struct {
		Kind   string     `json:"kind"`
		Fields []IDLField `json:"fields"`
	} `json:"type"`
}

type IDLError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// AccountRole is a flattened, ordered account slot of an instruction.
type AccountRole struct {
	Name     string
	Writable bool
	Signer   bool
}

func ParseIDL(idlBytes []byte) (*IDL, error) {
	var idl IDL
	err := json.Unmarshal(idlBytes, &idl)
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling IDL JSON: %w", err)
	}
	if len(idl.Instructions) == 0 {
		return nil, fmt.Errorf("IDL declares no instructions")
	}
	return &idl, nil
}

// LoadIDL reads and parses an IDL file. When path does not exist the embedded
// solana_chainlink IDL is returned instead.
func LoadIDL(path string) (*IDL, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		idl, err := ParseIDL([]byte(defaultIDLJSON))
		return idl, true, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read IDL file: %w", err)
	}
	idl, err := ParseIDL(data)
	return idl, false, err
}

// ProgramName returns the program name from whichever IDL layout is in use.
func (idl *IDL) ProgramName() string {
	if idl.Metadata.Name != "" {
		return idl.Metadata.Name
	}
	return idl.Name
}

// ProgramAddress returns the address recorded in the IDL, if any.
func (idl *IDL) ProgramAddress() string {
	if idl.Address != "" {
		return idl.Address
	}
	return idl.Metadata.Address
}

// Instruction looks up an instruction by name. camelCase and snake_case spellings are equivalent.
func (idl *IDL) Instruction(name string) (*IDLInstruction, error) {
	for i := range idl.Instructions {
		if sameName(idl.Instructions[i].Name, name) {
			return &idl.Instructions[i], nil
		}
	}
	return nil, schemaMismatch("operation %q is not declared by program %q", name, idl.ProgramName())
}

// Roles returns the instruction's account roles flattened in declaration order.
func (ix *IDLInstruction) Roles() []AccountRole {
	var roles []AccountRole
	var walk func(accounts []IDLAccount)
	walk = func(accounts []IDLAccount) {
		for _, acc := range accounts {
			if len(acc.Accounts) > 0 {
				walk(acc.Accounts)
				continue
			}
			roles = append(roles, AccountRole{
				Name:     acc.Name,
				Writable: acc.IsMut || acc.Writable,
				Signer:   acc.IsSigner || acc.Signer,
			})
		}
	}
	walk(ix.Accounts)
	return roles
}

// InstructionDiscriminator returns the 8-byte selector, taken from the IDL when present
// and otherwise derived the way Anchor does: sha256("global:<snake_case_name>")[:8].
func (ix *IDLInstruction) InstructionDiscriminator() [8]byte {
	if len(ix.Discriminator) == 8 {
		var disc [8]byte
		copy(disc[:], ix.Discriminator)
		return disc
	}
	return sighash("global", toSnakeCase(ix.Name))
}

// accountDefinition finds an account type by name, resolving 0.30 IDLs where the
// struct body lives under "types".
func (idl *IDL) accountDefinition(name string) (*IDLTypeDefinition, error) {
	for i := range idl.Accounts {
		acc := &idl.Accounts[i]
		if !strings.EqualFold(acc.Name, name) {
			continue
		}
		if acc.Type.Kind != "" {
			return acc, nil
		}
		for j := range idl.Types {
			if strings.EqualFold(idl.Types[j].Name, acc.Name) {
				def := idl.Types[j]
				def.Name = acc.Name
				def.Discriminator = acc.Discriminator
				return &def, nil
			}
		}
		return nil, schemaMismatch("account %q has no type definition", name)
	}
	return nil, schemaMismatch("account type %q is not declared by program %q", name, idl.ProgramName())
}

func sighash(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var disc [8]byte
	copy(disc[:], sum[:8])
	return disc
}

// toSnakeCase converts camelCase or PascalCase to snake_case.
func toSnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' && !unicode.IsUpper(runes[i-1]) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func normalizeName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

func sameName(a, b string) bool {
	return normalizeName(a) == normalizeName(b)
}

// defaultIDLJSON is the IDL generated for the solana_chainlink program.
const defaultIDLJSON = `{
  "version": "0.1.0",
  "name": "solana_chainlink",
  "instructions": [
    {
      "name": "execute",
      "accounts": [
        { "name": "decimal", "isMut": true, "isSigner": true },
        { "name": "user", "isMut": true, "isSigner": true },
        { "name": "chainlinkFeed", "isMut": false, "isSigner": false },
        { "name": "chainlinkProgram", "isMut": false, "isSigner": false },
        { "name": "systemProgram", "isMut": false, "isSigner": false }
      ],
      "args": []
    }
  ],
  "accounts": [
    {
      "name": "Decimal",
      "type": {
        "kind": "struct",
        "fields": [
          { "name": "value", "type": "i128" },
          { "name": "decimals", "type": "u32" }
        ]
      }
    }
  ],
  "metadata": {
    "address": "5FqDJPHp1KvztoNwQUh3s3bHxqn99RbkCK7BnR61foMz"
  }
}`

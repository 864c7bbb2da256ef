package solana_chainlink

import (
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Instruction is a built program invocation. It satisfies solana.Instruction and is
// immutable once built: the accessors return copies.
type Instruction struct {
	programID solana.PublicKey
	operation string
	accounts  []solana.AccountMeta
	data      []byte
}

var _ solana.Instruction = (*Instruction)(nil)

func (ix *Instruction) ProgramID() solana.PublicKey {
	return ix.programID
}

// Operation is the IDL name of the invoked instruction.
func (ix *Instruction) Operation() string {
	return ix.operation
}

func (ix *Instruction) Accounts() []*solana.AccountMeta {
	out := make([]*solana.AccountMeta, len(ix.accounts))
	for i := range ix.accounts {
		meta := ix.accounts[i]
		out[i] = &meta
	}
	return out
}

func (ix *Instruction) Data() ([]byte, error) {
	return append([]byte(nil), ix.data...), nil
}

// BuildInstruction maps role bindings onto the ordered account roles the IDL declares for
// operation and encodes the instruction data as the 8-byte discriminator followed by args.
// It performs no I/O.
func BuildInstruction(
	idl *IDL,
	programID solana.PublicKey,
	operation string,
	bindings map[string]solana.PublicKey,
	args []byte,
) (*Instruction, error) {
	if idl == nil {
		return nil, schemaMismatch("no program descriptor supplied")
	}
	if programID.IsZero() {
		return nil, schemaMismatch("program address is not set")
	}

	// 1. Resolve the operation
	// ------------------------
	def, err := idl.Instruction(operation)
	if err != nil {
		return nil, err
	}
	roles := def.Roles()

	// 2. Check the bindings against the declared roles
	// ------------------------------------------------
	byName := make(map[string]solana.PublicKey, len(bindings))
	for name, key := range bindings {
		byName[normalizeName(name)] = key
	}

	var missing []string
	declared := make(map[string]bool, len(roles))
	for _, role := range roles {
		declared[normalizeName(role.Name)] = true
		if _, ok := byName[normalizeName(role.Name)]; !ok {
			missing = append(missing, role.Name)
		}
	}
	var extra []string
	for name := range bindings {
		if !declared[normalizeName(name)] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	if len(missing) > 0 || len(extra) > 0 {
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, "missing roles ["+strings.Join(missing, ", ")+"]")
		}
		if len(extra) > 0 {
			parts = append(parts, "unexpected roles ["+strings.Join(extra, ", ")+"]")
		}
		return nil, schemaMismatch("operation %q: %s", def.Name, strings.Join(parts, "; "))
	}
	if len(bindings) != len(roles) {
		return nil, schemaMismatch("operation %q declares %d accounts, %d bound", def.Name, len(roles), len(bindings))
	}

	// 3. Check the argument payload
	// -----------------------------
	if len(def.Args) == 0 && len(args) > 0 {
		return nil, schemaMismatch("operation %q takes no arguments, got %d bytes", def.Name, len(args))
	}
	if len(def.Args) > 0 && len(args) == 0 {
		return nil, schemaMismatch("operation %q declares %d arguments but none were encoded", def.Name, len(def.Args))
	}

	// 4. Assemble accounts in declared order
	// --------------------------------------
	accounts := make([]solana.AccountMeta, 0, len(roles))
	for _, role := range roles {
		accounts = append(accounts, solana.AccountMeta{
			PublicKey:  byName[normalizeName(role.Name)],
			IsWritable: role.Writable,
			IsSigner:   role.Signer,
		})
	}

	disc := def.InstructionDiscriminator()
	data := make([]byte, 0, len(disc)+len(args))
	data = append(data, disc[:]...)
	data = append(data, args...)

	return &Instruction{
		programID: programID,
		operation: def.Name,
		accounts:  accounts,
		data:      data,
	}, nil
}

// ResolveProgramID returns the address to invoke: address when given, otherwise the one
// recorded in the IDL. An unparsable address is a schema mismatch.
func ResolveProgramID(idl *IDL, address string) (solana.PublicKey, error) {
	if address == "" && idl != nil {
		address = idl.ProgramAddress()
	}
	if address == "" {
		return solana.PublicKey{}, schemaMismatch("no program address given and the IDL records none")
	}
	programID, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, schemaMismatch("invalid program address %q: %v", address, err)
	}
	return programID, nil
}

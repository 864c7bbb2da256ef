package solana_chainlink

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// FieldValue is a decoded field. Integer kinds are held in Int regardless of width.
type FieldValue struct {
	Name      string
	Kind      FieldKind
	Int       *big.Int
	Bool      bool
	PublicKey solana.PublicKey
}

// DecodedAccount is an account reconstructed from raw bytes per a Layout.
type DecodedAccount struct {
	Layout string
	Fields []FieldValue
}

// Field returns the named field.
func (a *DecodedAccount) Field(name string) (FieldValue, bool) {
	for _, f := range a.Fields {
		if sameName(f.Name, name) {
			return f, true
		}
	}
	return FieldValue{}, false
}

// Decimal is a fixed-point number as stored on-chain: Value scaled by 10^Decimals.
type Decimal struct {
	Value    *big.Int
	Decimals uint32
}

// Decimal returns the typed view of a decoded "Decimal" account.
func (a *DecodedAccount) Decimal() (Decimal, error) {
	value, ok := a.Field("value")
	if !ok || value.Int == nil {
		return Decimal{}, layoutMismatch("account %q has no integer field \"value\"", a.Layout)
	}
	decimals, ok := a.Field("decimals")
	if !ok || decimals.Int == nil || decimals.Int.Sign() < 0 || !decimals.Int.IsUint64() || decimals.Int.Uint64() > 0xffffffff {
		return Decimal{}, layoutMismatch("account %q has no unsigned field \"decimals\"", a.Layout)
	}
	return Decimal{
		Value:    new(big.Int).Set(value.Int),
		Decimals: uint32(decimals.Int.Uint64()),
	}, nil
}

// String renders the value with its decimal point inserted, zero padded the way the
// program prints it to its log (e.g. 12345 with 8 decimals is 0.00012345).
func (d Decimal) String() string {
	return FormatDecimal(d.Value, d.Decimals)
}

// Scaled returns Value / 10^Decimals as an exact rational. The stored value is left untouched.
func (d Decimal) Scaled() *big.Rat {
	if d.Value == nil {
		return new(big.Rat)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Decimals)), nil)
	return new(big.Rat).SetFrac(d.Value, scale)
}

func (d Decimal) Float64() float64 {
	f, _ := d.Scaled().Float64()
	return f
}

func FormatDecimal(value *big.Int, decimals uint32) string {
	if value == nil {
		return "0"
	}
	digits := new(big.Int).Abs(value).String()
	sign := ""
	if value.Sign() < 0 {
		sign = "-"
	}
	if decimals == 0 {
		return sign + digits
	}
	n := int(decimals)
	if len(digits) <= n {
		return sign + "0." + strings.Repeat("0", n-len(digits)) + digits
	}
	return sign + digits[:len(digits)-n] + "." + digits[len(digits)-n:]
}

// DecodeAccount decodes raw account data strictly by layout. The data length must
// equal layout.Size() and the first 8 bytes must be the layout discriminator.
func DecodeAccount(data []byte, layout Layout) (*DecodedAccount, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: account holds no data", ErrAccountNotFound)
	}
	if layout.Space > 0 && layout.Space < layout.PackedSize() {
		return nil, layoutMismatch("layout %q space %d is smaller than its fields (%d bytes)", layout.Name, layout.Space, layout.PackedSize())
	}
	if len(data) != layout.Size() {
		return nil, layoutMismatch("account %q is %d bytes, layout requires %d", layout.Name, len(data), layout.Size())
	}
	if !bytes.Equal(data[:8], layout.Discriminator[:]) {
		return nil, layoutMismatch("discriminator %x does not match account %q (%x)", data[:8], layout.Name, layout.Discriminator[:])
	}

	decoder := bin.NewBorshDecoder(data[8:layout.PackedSize()])
	account := &DecodedAccount{Layout: layout.Name, Fields: make([]FieldValue, 0, len(layout.Fields))}
	for _, field := range layout.Fields {
		value, err := decodeField(decoder, field)
		if err != nil {
			return nil, layoutMismatch("failed to decode field %q: %v", field.Name, err)
		}
		account.Fields = append(account.Fields, value)
	}
	return account, nil
}

func decodeField(decoder *bin.Decoder, field Field) (FieldValue, error) {
	out := FieldValue{Name: field.Name, Kind: field.Kind}
	switch field.Kind {
	case KindBool:
		v, err := decoder.ReadBool()
		if err != nil {
			return out, err
		}
		out.Bool = v
	case KindU8:
		v, err := decoder.ReadUint8()
		if err != nil {
			return out, err
		}
		out.Int = new(big.Int).SetUint64(uint64(v))
	case KindI8:
		v, err := decoder.ReadUint8()
		if err != nil {
			return out, err
		}
		out.Int = big.NewInt(int64(int8(v)))
	case KindU16, KindI16:
		v, err := decoder.ReadUint16(binary.LittleEndian)
		if err != nil {
			return out, err
		}
		if field.Kind.Signed() {
			out.Int = big.NewInt(int64(int16(v)))
		} else {
			out.Int = new(big.Int).SetUint64(uint64(v))
		}
	case KindU32, KindI32:
		v, err := decoder.ReadUint32(binary.LittleEndian)
		if err != nil {
			return out, err
		}
		if field.Kind.Signed() {
			out.Int = big.NewInt(int64(int32(v)))
		} else {
			out.Int = new(big.Int).SetUint64(uint64(v))
		}
	case KindU64, KindI64:
		v, err := decoder.ReadUint64(binary.LittleEndian)
		if err != nil {
			return out, err
		}
		if field.Kind.Signed() {
			out.Int = big.NewInt(int64(v))
		} else {
			out.Int = new(big.Int).SetUint64(v)
		}
	case KindU128, KindI128:
		v, err := decoder.ReadUint128(binary.LittleEndian)
		if err != nil {
			return out, err
		}
		out.Int = int128FromWords(v.Lo, v.Hi, field.Kind.Signed())
	case KindPublicKey:
		v, err := decoder.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return out, err
		}
		out.PublicKey = solana.PublicKeyFromBytes(v)
	default:
		return out, fmt.Errorf("unknown field kind %d", int(field.Kind))
	}
	return out, nil
}

var twoTo128 = new(big.Int).Lsh(big.NewInt(1), 128)

func int128FromWords(lo, hi uint64, signed bool) *big.Int {
	v := new(big.Int).SetUint64(hi)
	v.Lsh(v, 64)
	v.Or(v, new(big.Int).SetUint64(lo))
	if signed && hi&(1<<63) != 0 {
		v.Sub(v, twoTo128)
	}
	return v
}

// IntValue builds an integer FieldValue.
func IntValue(name string, kind FieldKind, v *big.Int) FieldValue {
	return FieldValue{Name: name, Kind: kind, Int: v}
}

// EncodeAccount is the inverse of DecodeAccount: it writes the discriminator and the
// named values in layout order, then zero pads to layout.Size().
func EncodeAccount(layout Layout, values []FieldValue) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(layout.Discriminator[:])
	encoder := bin.NewBorshEncoder(buf)

	for _, field := range layout.Fields {
		var value *FieldValue
		for i := range values {
			if sameName(values[i].Name, field.Name) {
				value = &values[i]
				break
			}
		}
		if value == nil {
			return nil, layoutMismatch("no value supplied for field %q", field.Name)
		}
		if err := encodeField(encoder, field, *value); err != nil {
			return nil, layoutMismatch("failed to encode field %q: %v", field.Name, err)
		}
	}

	if buf.Len() > layout.Size() {
		return nil, layoutMismatch("encoded %d bytes exceed layout size %d", buf.Len(), layout.Size())
	}
	out := make([]byte, layout.Size())
	copy(out, buf.Bytes())
	return out, nil
}

func encodeField(encoder *bin.Encoder, field Field, value FieldValue) error {
	switch field.Kind {
	case KindBool:
		return encoder.WriteBool(value.Bool)
	case KindPublicKey:
		return encoder.WriteBytes(value.PublicKey[:], false)
	}

	if value.Int == nil {
		return fmt.Errorf("integer value is nil")
	}
	width := field.Kind.Width()
	word, err := twosComplement(value.Int, width*8, field.Kind.Signed())
	if err != nil {
		return err
	}
	switch width {
	case 1:
		return encoder.WriteUint8(uint8(word.Uint64()))
	case 2:
		return encoder.WriteUint16(uint16(word.Uint64()), binary.LittleEndian)
	case 4:
		return encoder.WriteUint32(uint32(word.Uint64()), binary.LittleEndian)
	case 8:
		return encoder.WriteUint64(word.Uint64(), binary.LittleEndian)
	case 16:
		lo := new(big.Int).And(word, new(big.Int).SetUint64(^uint64(0))).Uint64()
		hi := new(big.Int).Rsh(word, 64).Uint64()
		if err := encoder.WriteUint64(lo, binary.LittleEndian); err != nil {
			return err
		}
		return encoder.WriteUint64(hi, binary.LittleEndian)
	}
	return fmt.Errorf("unknown field kind %d", int(field.Kind))
}

// twosComplement range-checks v for a bits-wide integer and returns its unsigned encoding.
func twosComplement(v *big.Int, bits int, signed bool) (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	min, max := big.NewInt(0), new(big.Int).Sub(limit, big.NewInt(1))
	if signed {
		half := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		min = new(big.Int).Neg(half)
		max = new(big.Int).Sub(half, big.NewInt(1))
	}
	if v.Cmp(min) < 0 || v.Cmp(max) > 0 {
		return nil, fmt.Errorf("value %s out of range for %d-bit integer", v, bits)
	}
	if v.Sign() < 0 {
		return new(big.Int).Add(v, limit), nil
	}
	return new(big.Int).Set(v), nil
}

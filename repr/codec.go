package repr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/viant/depview/naming"
)

const (
	classTag  = byte('C')
	moduleTag = byte('M')
)

const (
	valueNil byte = iota
	valueInt32
	valueInt64
	valueFloat32
	valueFloat64
	valueString
)

var errTruncated = errors.New("truncated record")

// Writer appends the persisted form of snapshots.
type Writer struct {
	buf []byte
}

// Bytes returns the encoded data.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) writeByte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *Writer) writeInt(v int64) {
	w.buf = binary.AppendVarint(w.buf, v)
}

func (w *Writer) writeUint(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

func (w *Writer) writeName(n naming.Name) {
	w.writeInt(int64(n))
}

func (w *Writer) writeBool(v bool) {
	if v {
		w.writeByte(1)
		return
	}
	w.writeByte(0)
}

func (w *Writer) writeString(s string) {
	w.writeUint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) writeNames(names []naming.Name) {
	w.writeUint(uint64(len(names)))
	for _, n := range names {
		w.writeName(n)
	}
}

// WriteType appends a type.
func (w *Writer) WriteType(t *Type) {
	w.writeByte(byte(t.Kind))
	switch t.Kind {
	case PrimitiveKind:
		w.writeName(t.Name)
	case ArrayKind:
		w.WriteType(t.Elem)
	case ClassKind:
		w.writeName(t.Name)
		w.writeTypes(t.Args)
	}
}

func (w *Writer) writeOptionalType(t *Type) {
	w.writeBool(t != nil)
	if t != nil {
		w.WriteType(t)
	}
}

func (w *Writer) writeTypes(types []*Type) {
	w.writeUint(uint64(len(types)))
	for _, t := range types {
		w.WriteType(t)
	}
}

// WriteUsage appends a usage.
func (w *Writer) WriteUsage(u *Usage) {
	w.writeByte(byte(u.Kind))
	w.writeName(u.Owner)
	w.writeName(u.Name)
	w.writeOptionalType(u.Type)
	w.writeTypes(u.Args)
	w.writeNames(u.UsedArgs)
	w.writeUint(uint64(u.Targets))
}

func (w *Writer) writeValue(v any) {
	switch actual := v.(type) {
	case nil:
		w.writeByte(valueNil)
	case int32:
		w.writeByte(valueInt32)
		w.writeInt(int64(actual))
	case int64:
		w.writeByte(valueInt64)
		w.writeInt(actual)
	case float32:
		w.writeByte(valueFloat32)
		w.writeUint(uint64(math.Float32bits(actual)))
	case float64:
		w.writeByte(valueFloat64)
		w.writeUint(math.Float64bits(actual))
	case string:
		w.writeByte(valueString)
		w.writeString(actual)
	default:
		panic(fmt.Sprintf("unsupported member value %T", v))
	}
}

func (w *Writer) writeProto(p *Proto) {
	w.writeInt(int64(p.Access))
	w.writeName(p.Signature)
	w.writeName(p.Name)
	w.writeTypes(p.Annotations)
}

func (w *Writer) writeMember(m *Member) {
	w.writeProto(&m.Proto)
	w.WriteType(m.Type)
	w.writeValue(m.Value)
}

func (w *Writer) writeUsages(usages []*Usage) {
	w.writeUint(uint64(len(usages)))
	for _, u := range usages {
		w.WriteUsage(u)
	}
}

// WriteClassFile appends a class or module snapshot.
func (w *Writer) WriteClassFile(r ClassFileRepr) {
	switch actual := r.(type) {
	case *ClassRepr:
		w.writeClass(actual)
	case *ModuleRepr:
		w.writeModule(actual)
	default:
		panic(fmt.Sprintf("unsupported class file snapshot %T", r))
	}
}

func (w *Writer) writeClass(c *ClassRepr) {
	w.writeByte(classTag)
	w.writeProto(&c.Proto)
	w.writeName(c.File)
	w.writeOptionalType(c.SuperClass)
	w.writeTypes(c.Interfaces)
	w.writeUint(uint64(len(c.Fields)))
	for _, f := range c.Fields {
		w.writeMember(&f.Member)
	}
	w.writeUint(uint64(len(c.Methods)))
	for _, m := range c.Methods {
		w.writeMember(&m.Member)
		w.writeTypes(m.Args)
		w.writeTypes(m.Exceptions)
		w.writeUint(uint64(len(m.ParamAnnotations)))
		for _, p := range m.ParamAnnotations {
			w.writeInt(int64(p.Index))
			w.WriteType(p.Type)
		}
	}
	w.writeUint(uint64(c.Targets))
	w.writeByte(byte(c.Retention))
	w.writeName(c.OuterClass)
	var flags byte
	for i, set := range []bool{c.Local, c.Anonymous, c.Generated, c.HasInlinedConstants} {
		if set {
			flags |= 1 << i
		}
	}
	w.writeByte(flags)
	w.writeUsages(c.Usages())
}

func (w *Writer) writeModule(m *ModuleRepr) {
	w.writeByte(moduleTag)
	w.writeProto(&m.Proto)
	w.writeName(m.File)
	w.writeName(m.Version)
	w.writeUint(uint64(len(m.Requires)))
	for _, r := range m.Requires {
		w.writeName(r.Name)
		w.writeInt(int64(r.Access))
		w.writeName(r.Version)
	}
	w.writeUint(uint64(len(m.Exports)))
	for _, p := range m.Exports {
		w.writeName(p.Name)
		w.writeNames(p.Targets)
	}
	w.writeUsages(m.Usages())
}

// Reader decodes the persisted form of snapshots, canonicalizing types and usages through its context.
type Reader struct {
	ctx *Context
	buf []byte
	err error
}

// NewReader creates a reader over data.
func NewReader(ctx *Context, data []byte) *Reader {
	return &Reader{ctx: ctx, buf: data}
}

// Err returns the first decoding error.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
	r.buf = nil
}

func (r *Reader) readByte() byte {
	if r.err != nil {
		return 0
	}
	if len(r.buf) == 0 {
		r.fail(errTruncated)
		return 0
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b
}

func (r *Reader) readInt() int64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Varint(r.buf)
	if n <= 0 {
		r.fail(errTruncated)
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *Reader) readUint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf)
	if n <= 0 {
		r.fail(errTruncated)
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

// readCount reads a collection length bounded by the remaining input.
func (r *Reader) readCount() int {
	n := r.readUint()
	if n > uint64(len(r.buf)) {
		r.fail(fmt.Errorf("collection length %d exceeds record", n))
		return 0
	}
	return int(n)
}

func (r *Reader) readName() naming.Name {
	return naming.Name(r.readInt())
}

func (r *Reader) readBool() bool {
	return r.readByte() != 0
}

func (r *Reader) readString() string {
	n := r.readCount()
	if r.err != nil {
		return ""
	}
	s := string(r.buf[:n])
	r.buf = r.buf[n:]
	return s
}

func (r *Reader) readNames() []naming.Name {
	n := r.readCount()
	if n == 0 {
		return nil
	}
	ret := make([]naming.Name, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		ret = append(ret, r.readName())
	}
	return ret
}

// ReadType decodes a type.
func (r *Reader) ReadType() *Type {
	kind := TypeKind(r.readByte())
	if r.err != nil {
		return nil
	}
	switch kind {
	case PrimitiveKind:
		return r.ctx.canonicalType(&Type{Kind: PrimitiveKind, Name: r.readName()})
	case ArrayKind:
		elem := r.ReadType()
		if elem == nil {
			return nil
		}
		return r.ctx.ArrayType(elem)
	case ClassKind:
		name := r.readName()
		args := r.readTypes()
		if r.err != nil {
			return nil
		}
		return r.ctx.ClassType(name, args...)
	}
	r.fail(fmt.Errorf("unknown type kind %d", kind))
	return nil
}

func (r *Reader) readOptionalType() *Type {
	if !r.readBool() {
		return nil
	}
	return r.ReadType()
}

func (r *Reader) readTypes() []*Type {
	n := r.readCount()
	if n == 0 {
		return nil
	}
	ret := make([]*Type, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		ret = append(ret, r.ReadType())
	}
	return ret
}

// ReadUsage decodes a usage.
func (r *Reader) ReadUsage() *Usage {
	u := &Usage{Kind: UsageKind(r.readByte())}
	u.Owner = r.readName()
	u.Name = r.readName()
	u.Type = r.readOptionalType()
	u.Args = r.readTypes()
	u.UsedArgs = r.readNames()
	u.Targets = ElemTypes(r.readUint())
	if r.err != nil {
		return nil
	}
	if _, ok := usageKindNames[u.Kind]; !ok {
		r.fail(fmt.Errorf("unknown usage kind %d", u.Kind))
		return nil
	}
	return r.ctx.canonicalUsage(u)
}

func (r *Reader) readValue() any {
	switch tag := r.readByte(); tag {
	case valueNil:
		return nil
	case valueInt32:
		return int32(r.readInt())
	case valueInt64:
		return r.readInt()
	case valueFloat32:
		return math.Float32frombits(uint32(r.readUint()))
	case valueFloat64:
		return math.Float64frombits(r.readUint())
	case valueString:
		return r.readString()
	default:
		r.fail(fmt.Errorf("unknown value tag %d", tag))
	}
	return nil
}

func (r *Reader) readProto() Proto {
	return Proto{
		Access:      int(r.readInt()),
		Signature:   r.readName(),
		Name:        r.readName(),
		Annotations: r.readTypes(),
	}
}

func (r *Reader) readMember() Member {
	return Member{Proto: r.readProto(), Type: r.ReadType(), Value: r.readValue()}
}

func (r *Reader) readUsages(target *usageSet) {
	n := r.readCount()
	for i := 0; i < n && r.err == nil; i++ {
		if u := r.ReadUsage(); u != nil {
			target.AddUsage(u)
		}
	}
}

// ReadClassFile decodes a class or module snapshot.
func (r *Reader) ReadClassFile() ClassFileRepr {
	switch tag := r.readByte(); tag {
	case classTag:
		return r.readClass()
	case moduleTag:
		return r.readModule()
	default:
		r.fail(fmt.Errorf("unknown class file tag %d", tag))
	}
	return nil
}

func (r *Reader) readClass() *ClassRepr {
	c := &ClassRepr{Proto: r.readProto()}
	c.File = r.readName()
	c.SuperClass = r.readOptionalType()
	c.Interfaces = r.readTypes()
	if n := r.readCount(); n > 0 {
		c.Fields = make([]*FieldRepr, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			c.Fields = append(c.Fields, &FieldRepr{Member: r.readMember()})
		}
	}
	if n := r.readCount(); n > 0 {
		c.Methods = make([]*MethodRepr, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			m := &MethodRepr{Member: r.readMember()}
			m.Args = r.readTypes()
			m.Exceptions = r.readTypes()
			if count := r.readCount(); count > 0 {
				m.ParamAnnotations = make([]ParamAnnotation, 0, count)
				for j := 0; j < count && r.err == nil; j++ {
					m.ParamAnnotations = append(m.ParamAnnotations, ParamAnnotation{Index: int(r.readInt()), Type: r.ReadType()})
				}
			}
			c.Methods = append(c.Methods, m)
		}
	}
	c.Targets = ElemTypes(r.readUint())
	c.Retention = RetentionPolicy(r.readByte())
	c.OuterClass = r.readName()
	flags := r.readByte()
	c.Local = flags&1 != 0
	c.Anonymous = flags&2 != 0
	c.Generated = flags&4 != 0
	c.HasInlinedConstants = flags&8 != 0
	r.readUsages(&c.usageSet)
	if r.err != nil {
		return nil
	}
	return c
}

func (r *Reader) readModule() *ModuleRepr {
	m := &ModuleRepr{Proto: r.readProto()}
	m.File = r.readName()
	m.Version = r.readName()
	if n := r.readCount(); n > 0 {
		m.Requires = make([]ModuleRequires, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			m.Requires = append(m.Requires, ModuleRequires{Name: r.readName(), Access: int(r.readInt()), Version: r.readName()})
		}
	}
	if n := r.readCount(); n > 0 {
		m.Exports = make([]ModulePackage, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			m.Exports = append(m.Exports, ModulePackage{Name: r.readName(), Targets: r.readNames()})
		}
	}
	r.readUsages(&m.usageSet)
	if r.err != nil {
		return nil
	}
	return m
}

// MarshalClassFile encodes a class or module snapshot.
func MarshalClassFile(r ClassFileRepr) []byte {
	w := &Writer{}
	w.WriteClassFile(r)
	return w.Bytes()
}

// UnmarshalClassFile decodes a class or module snapshot.
func UnmarshalClassFile(ctx *Context, data []byte) (ClassFileRepr, error) {
	r := NewReader(ctx, data)
	ret := r.ReadClassFile()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode class file: %w", err)
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("decode class file: %d trailing bytes", len(r.buf))
	}
	return ret, nil
}

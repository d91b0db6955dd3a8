package qcbor

import "math"

// maxTagsPerItem bounds the per-item tag FIFO; exceeding it is
// unrecoverable (spec.md §4.D).
const maxTagsPerItem = 4

// StringAllocator supplies memory for reassembling indefinite-length
// strings, whose constituent chunks must be concatenated somewhere other
// than the (read-only, borrowed) input buffer.
type StringAllocator interface {
	Allocate(n int) ([]byte, bool)
}

// MemPool is a bump-pointer StringAllocator over a fixed, caller-provided
// buffer — the simplest allocator satisfying spec.md's "no dynamic memory
// allocation" non-goal.
type MemPool struct {
	buf  []byte
	used int
}

// NewMemPool returns a MemPool backed by buf.
func NewMemPool(buf []byte) *MemPool {
	return &MemPool{buf: buf}
}

// Allocate implements StringAllocator.
func (p *MemPool) Allocate(n int) ([]byte, bool) {
	if p.used+n > len(p.buf) {
		return nil, false
	}
	b := p.buf[p.used : p.used+n]
	p.used += n
	return b, true
}

// decFrame is one entry of the decoder's container stack: the major kind
// of container entered, how many sub-items remain (or the indefinite
// sentinel), the offset where its body started (used by map search to
// rewind and linear-scan), and whether a break marker has been observed
// for an indefinite container.
type decFrame struct {
	kind         frameKind
	remaining    uint64
	totalPairs   uint64
	contentStart int
	breakSeen    bool
}

// Decoder is the stateful CBOR consumer described in spec.md §4.D.
type Decoder struct {
	top       *inBuf
	wrapStack []*inBuf
	stack     []decFrame
	allocator StringAllocator
	err       *Error
}

// NewDecoder returns a Decoder reading from src.
func NewDecoder(src []byte) *Decoder {
	return &Decoder{top: newInBuf(src)}
}

// Init resets the Decoder to read from src, discarding all prior state.
func (d *Decoder) Init(src []byte) {
	*d = Decoder{top: newInBuf(src)}
}

// SetMemPool configures a MemPool backed by buf as the string allocator
// used to reassemble indefinite-length strings.
func (d *Decoder) SetMemPool(buf []byte) {
	d.allocator = NewMemPool(buf)
}

// SetUpAllocator configures an arbitrary StringAllocator.
func (d *Decoder) SetUpAllocator(a StringAllocator) {
	d.allocator = a
}

func (d *Decoder) setErr(err *Error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) curIn() *inBuf {
	return d.top
}

func (d *Decoder) topFrame() *decFrame {
	if len(d.stack) == 0 {
		return nil
	}
	return &d.stack[len(d.stack)-1]
}

// --- low level: heads, tags, one item ---

func decodeItemWithTags(in *inBuf, alloc StringAllocator) (Item, *Error) {
	var tags []uint64
	for {
		h, err := decodeHead(in)
		if err != nil {
			return Item{}, err
		}
		if h.major == majorTag {
			if len(tags) >= maxTagsPerItem {
				return Item{}, ErrTooManyTags
			}
			tags = append(tags, h.argument)
			continue
		}
		item, err := decodeOneItem(in, h, alloc)
		if err != nil {
			return Item{}, err
		}
		item.TagNums = tags
		return item, nil
	}
}

func decodeOneItem(in *inBuf, h decodedHead, alloc StringAllocator) (Item, *Error) {
	switch h.major {
	case majorUnsignedInt:
		if h.argument <= math.MaxInt64 {
			return Item{Major: majorUnsignedInt, Type: TypeInt64, Int64: int64(h.argument)}, nil
		}
		return Item{Major: majorUnsignedInt, Type: TypeUInt64, Uint64: h.argument}, nil

	case majorNegativeInt:
		if h.argument <= math.MaxInt64 {
			return Item{Major: majorNegativeInt, Type: TypeInt64, Int64: -1 - int64(h.argument)}, nil
		}
		return Item{Major: majorNegativeInt, Type: TypeNegativeUInt64, Uint64: h.argument}, nil

	case majorByteString:
		b, err := decodeStringBody(in, h, majorByteString, alloc)
		if err != nil {
			return Item{}, err
		}
		return Item{Major: majorByteString, Type: TypeByteString, Bytes: b}, nil

	case majorTextString:
		b, err := decodeStringBody(in, h, majorTextString, alloc)
		if err != nil {
			return Item{}, err
		}
		return Item{Major: majorTextString, Type: TypeTextString, Bytes: b}, nil

	case majorArray:
		count := h.argument
		if h.indefinite {
			count = indefiniteCount
		}
		return Item{Major: majorArray, Type: TypeArrayStart, Count: count}, nil

	case majorMap:
		count := h.argument
		if h.indefinite {
			count = indefiniteCount
		}
		return Item{Major: majorMap, Type: TypeMapStart, Count: count}, nil

	case majorSimple:
		return decodeSimple(h)
	}
	return Item{}, ErrUnsupportedAI
}

func decodeStringBody(in *inBuf, h decodedHead, major majorType, alloc StringAllocator) ([]byte, *Error) {
	if !h.indefinite {
		b, ok := in.read(int(h.argument))
		if !ok {
			return nil, ErrHitEnd
		}
		return b, nil
	}
	return reassembleIndefiniteString(in, major, alloc)
}

// reassembleIndefiniteString implements spec.md §4.D's indefinite-length
// string reassembly: constituent chunks must all share major, are
// concatenated into allocator memory, and returned as one logical string.
// A zero-chunk indefinite string is valid and needs no allocator.
func reassembleIndefiniteString(in *inBuf, major majorType, alloc StringAllocator) ([]byte, *Error) {
	var chunks [][]byte
	total := 0
	for {
		b, ok := in.peekByte()
		if !ok {
			return nil, ErrHitEnd
		}
		if b == breakByte {
			in.read(1)
			break
		}
		ch, err := decodeHead(in)
		if err != nil {
			return nil, err
		}
		if ch.major != major || ch.indefinite {
			return nil, ErrIndefiniteStringChunk
		}
		data, ok := in.read(int(ch.argument))
		if !ok {
			return nil, ErrHitEnd
		}
		chunks = append(chunks, data)
		total += len(data)
	}
	if total == 0 {
		return []byte{}, nil
	}
	if alloc == nil {
		return nil, ErrNoStringAllocator
	}
	buf, ok := alloc.Allocate(total)
	if !ok {
		return nil, ErrStringAllocateFailed
	}
	pos := 0
	for _, c := range chunks {
		pos += copy(buf[pos:], c)
	}
	return buf, nil
}

func decodeSimple(h decodedHead) (Item, *Error) {
	if h.isBreak {
		return Item{Major: majorSimple, Type: TypeBreak}, nil
	}
	switch h.ai {
	case aiTwoByte: // half
		return Item{Major: majorSimple, Type: TypeHalfFloat, Double: halfBitsToFloat64(uint16(h.argument))}, nil
	case aiFourByte: // single
		return Item{Major: majorSimple, Type: TypeFloat, Double: float64(math.Float32frombits(uint32(h.argument)))}, nil
	case aiEightByte: // double
		return Item{Major: majorSimple, Type: TypeDouble, Double: math.Float64frombits(h.argument)}, nil
	case aiOneByte:
		if h.argument < 32 {
			return Item{}, ErrBadType7
		}
		return Item{Major: majorSimple, Type: TypeSimple, Uint64: h.argument}, nil
	default:
		switch h.argument {
		case simpleFalse:
			return Item{Major: majorSimple, Type: TypeBool, Int64: 0}, nil
		case simpleTrue:
			return Item{Major: majorSimple, Type: TypeBool, Int64: 1}, nil
		case simpleNull:
			return Item{Major: majorSimple, Type: TypeNull}, nil
		case simpleUndefined:
			return Item{Major: majorSimple, Type: TypeUndefined}, nil
		default:
			return Item{Major: majorSimple, Type: TypeSimple, Uint64: h.argument}, nil
		}
	}
}

// skipOneItem consumes exactly one logical CBOR item (including any
// preceding tags and, for containers, all nested content) from in without
// materializing an Item. Used by map search and by the encoder's
// CloseMap-with-sort to walk (label, value) pair boundaries.
func skipOneItem(in *inBuf) *Error {
	h, err := decodeHead(in)
	if err != nil {
		return err
	}
	switch h.major {
	case majorUnsignedInt, majorNegativeInt:
		return nil
	case majorTag:
		return skipOneItem(in)
	case majorSimple:
		return nil
	case majorByteString, majorTextString:
		if !h.indefinite {
			if _, ok := in.read(int(h.argument)); !ok {
				return ErrHitEnd
			}
			return nil
		}
		for {
			b, ok := in.peekByte()
			if !ok {
				return ErrHitEnd
			}
			if b == breakByte {
				in.read(1)
				return nil
			}
			ch, err := decodeHead(in)
			if err != nil {
				return err
			}
			if ch.major != h.major || ch.indefinite {
				return ErrIndefiniteStringChunk
			}
			if _, ok := in.read(int(ch.argument)); !ok {
				return ErrHitEnd
			}
		}
	case majorArray:
		if h.indefinite {
			for {
				b, ok := in.peekByte()
				if !ok {
					return ErrHitEnd
				}
				if b == breakByte {
					in.read(1)
					return nil
				}
				if err := skipOneItem(in); err != nil {
					return err
				}
			}
		}
		for i := uint64(0); i < h.argument; i++ {
			if err := skipOneItem(in); err != nil {
				return err
			}
		}
		return nil
	case majorMap:
		if h.indefinite {
			for {
				b, ok := in.peekByte()
				if !ok {
					return ErrHitEnd
				}
				if b == breakByte {
					in.read(1)
					return nil
				}
				if err := skipOneItem(in); err != nil {
					return err
				}
				if err := skipOneItem(in); err != nil {
					return err
				}
			}
		}
		n := h.argument * 2
		for i := uint64(0); i < n; i++ {
			if err := skipOneItem(in); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

// --- GetNext ---

// GetNext reads one item at the cursor. If it is a tag number, tag numbers
// are collected (up to maxTagsPerItem) until a non-tag item is reached and
// attached to the returned Item. Inside an entered map, GetNext decodes the
// (label, value) pair and returns the value with Item.Label populated.
func (d *Decoder) GetNext() (Item, error) {
	if d.err != nil {
		return Item{}, d.err
	}
	item, qerr := d.getNextLatched()
	if qerr != nil {
		d.setErr(qerr)
		return Item{}, qerr
	}
	return item, nil
}

func (d *Decoder) getNextLatched() (Item, *Error) {
	f := d.topFrame()
	if f != nil && (f.kind == frameMap || f.kind == frameMapIndef) {
		return d.getNextMapEntry(f)
	}
	return d.getNextPlain(f)
}

func (d *Decoder) getNextPlain(f *decFrame) (Item, *Error) {
	in := d.curIn()
	if f != nil && (f.kind == frameArrayIndef) {
		b, ok := in.peekByte()
		if !ok {
			return Item{}, ErrHitEnd
		}
		if b == breakByte {
			in.read(1)
			f.breakSeen = true
			return Item{Type: TypeBreak}, nil
		}
	} else if f != nil && f.kind == frameArray {
		if f.remaining == 0 {
			return Item{}, ErrNoMoreItems
		}
	}
	if in.atEnd() {
		return Item{}, ErrHitEnd
	}
	item, err := decodeItemWithTags(in, d.allocator)
	if err != nil {
		return Item{}, err
	}
	if f != nil && f.kind == frameArray {
		f.remaining--
	}
	if err := d.pushContainerFrame(item); err != nil {
		return Item{}, err
	}
	return item, nil
}

func (d *Decoder) getNextMapEntry(f *decFrame) (Item, *Error) {
	in := d.curIn()
	if f.kind == frameMapIndef {
		b, ok := in.peekByte()
		if !ok {
			return Item{}, ErrHitEnd
		}
		if b == breakByte {
			in.read(1)
			f.breakSeen = true
			return Item{Type: TypeBreak}, nil
		}
	} else if f.remaining == 0 {
		return Item{}, ErrNoMoreItems
	}

	labelItem, err := decodeItemWithTags(in, d.allocator)
	if err != nil {
		return Item{}, err
	}
	label, err := labelFromItem(labelItem)
	if err != nil {
		return Item{}, err
	}
	valueItem, err := decodeItemWithTags(in, d.allocator)
	if err != nil {
		return Item{}, err
	}
	valueItem.Label = label
	valueItem.HasLabel = true
	if f.kind == frameMap {
		f.remaining -= 2
	}
	if err := d.pushContainerFrame(valueItem); err != nil {
		return Item{}, err
	}
	return valueItem, nil
}

// pushContainerFrame pushes a new frame for item if it is an array or map
// head, so that a container reached as a map/array value (not just one
// entered directly via EnterArray/EnterMap) can be read into immediately
// with ordinary GetNext/GetInt64/etc calls, matching the top-level case.
func (d *Decoder) pushContainerFrame(item Item) *Error {
	if item.Type != TypeArrayStart && item.Type != TypeMapStart {
		return nil
	}
	if len(d.stack) >= maxNestingDepth {
		return ErrDecodeNestingTooDeep
	}
	f := decFrame{contentStart: d.curIn().cursor}
	switch {
	case item.Count == indefiniteCount && item.Type == TypeArrayStart:
		f.kind = frameArrayIndef
	case item.Count == indefiniteCount:
		f.kind = frameMapIndef
	case item.Type == TypeArrayStart:
		f.kind = frameArray
		f.remaining = item.Count
	default:
		f.kind = frameMap
		f.remaining = item.Count * 2
		f.totalPairs = item.Count
	}
	d.stack = append(d.stack, f)
	return nil
}

func labelFromItem(it Item) (Label, *Error) {
	switch it.Type {
	case TypeInt64:
		return Label{Kind: TypeInt64, Int64: it.Int64, IsValid: true}, nil
	case TypeUInt64:
		return Label{Kind: TypeUInt64, Uint64: it.Uint64, IsValid: true}, nil
	case TypeNegativeUInt64:
		return Label{Kind: TypeNegativeUInt64, Uint64: it.Uint64, IsValid: true}, nil
	case TypeTextString:
		return Label{Kind: TypeTextString, Text: it.Text(), IsValid: true}, nil
	case TypeByteString:
		return Label{Kind: TypeByteString, Bytes: it.Bytes, IsValid: true}, nil
	default:
		return Label{}, ErrMapLabelTypeUnsupported
	}
}

// --- containers ---

// EnterArray requires the next item to be an array head and descends into
// its body, pushing a frame with its announced item count (or the
// indefinite sentinel).
func (d *Decoder) EnterArray() (Item, error) {
	return d.enterContainer(TypeArrayStart, frameArray, frameArrayIndef)
}

// EnterMap requires the next item to be a map head and descends into its
// body.
func (d *Decoder) EnterMap() (Item, error) {
	return d.enterContainer(TypeMapStart, frameMap, frameMapIndef)
}

func (d *Decoder) enterContainer(want ItemType, definiteKind, indefKind frameKind) (Item, error) {
	if d.err != nil {
		return Item{}, d.err
	}
	item, qerr := d.getNextLatched()
	if qerr != nil {
		d.setErr(qerr)
		return Item{}, qerr
	}
	if item.Type != want {
		d.setErr(ErrUnexpectedType)
		return Item{}, ErrUnexpectedType
	}
	// getNextLatched has already pushed this container's frame (and checked
	// the nesting depth); it is refreshed in place rather than pushed again.
	f := decFrame{contentStart: d.curIn().cursor}
	if item.Count == indefiniteCount {
		f.kind = indefKind
	} else {
		f.kind = definiteKind
		if definiteKind == frameMap {
			f.remaining = item.Count * 2
			f.totalPairs = item.Count
		} else {
			f.remaining = item.Count
		}
	}
	d.stack[len(d.stack)-1] = f
	return item, nil
}

// ExitArray verifies the frame's remaining count is zero (or that the next
// byte is the break marker for an indefinite array) and pops the frame.
func (d *Decoder) ExitArray() error {
	return d.exitContainer(frameArray, frameArrayIndef)
}

// ExitMap verifies the frame's remaining count is zero (or the break
// marker has been seen) and pops the frame.
func (d *Decoder) ExitMap() error {
	return d.exitContainer(frameMap, frameMapIndef)
}

func (d *Decoder) exitContainer(definiteKind, indefKind frameKind) error {
	if d.err != nil {
		return d.err
	}
	f := d.topFrame()
	if f == nil || (f.kind != definiteKind && f.kind != indefKind) {
		d.setErr(ErrExitMismatch)
		return ErrExitMismatch
	}
	if f.kind == indefKind {
		if !f.breakSeen {
			d.setErr(ErrArrayOrMapUnconsumed)
			return ErrArrayOrMapUnconsumed
		}
	} else if f.remaining != 0 {
		d.setErr(ErrArrayOrMapUnconsumed)
		return ErrArrayOrMapUnconsumed
	}
	d.stack = d.stack[:len(d.stack)-1]
	return nil
}

// EnterBstrWrapped requires the next item to be a byte string and retargets
// the decoder at its body, saving the outer cursor. ExitBstrWrapped
// restores it.
func (d *Decoder) EnterBstrWrapped() (Item, error) {
	if d.err != nil {
		return Item{}, d.err
	}
	item, qerr := d.getNextLatched()
	if qerr != nil {
		d.setErr(qerr)
		return Item{}, qerr
	}
	if item.Type != TypeByteString {
		d.setErr(ErrUnexpectedType)
		return Item{}, ErrUnexpectedType
	}
	d.wrapStack = append(d.wrapStack, d.top)
	d.top = newInBuf(item.Bytes)
	return item, nil
}

// ExitBstrWrapped restores the cursor saved by EnterBstrWrapped.
func (d *Decoder) ExitBstrWrapped() error {
	if d.err != nil {
		return d.err
	}
	if len(d.wrapStack) == 0 {
		d.setErr(ErrExitMismatch)
		return ErrExitMismatch
	}
	d.top = d.wrapStack[len(d.wrapStack)-1]
	d.wrapStack = d.wrapStack[:len(d.wrapStack)-1]
	return nil
}

// --- typed accessors ---

func (d *Decoder) getTyped(want ItemType) (Item, error) {
	item, err := d.GetNext()
	if err != nil {
		return Item{}, err
	}
	if item.Type != want {
		d.setErr(ErrUnexpectedType)
		return Item{}, ErrUnexpectedType
	}
	return item, nil
}

// GetInt64 reads the next item as a signed 64-bit integer.
func (d *Decoder) GetInt64() (int64, error) {
	item, err := d.GetNext()
	if err != nil {
		return 0, err
	}
	if item.Type != TypeInt64 {
		d.setErr(ErrUnexpectedType)
		return 0, ErrUnexpectedType
	}
	return item.Int64, nil
}

// GetUInt64 reads the next item as an unsigned 64-bit integer.
func (d *Decoder) GetUInt64() (uint64, error) {
	item, err := d.GetNext()
	if err != nil {
		return 0, err
	}
	switch item.Type {
	case TypeUInt64:
		return item.Uint64, nil
	case TypeInt64:
		if item.Int64 < 0 {
			d.setErr(ErrNumberSignConversion)
			return 0, ErrNumberSignConversion
		}
		return uint64(item.Int64), nil
	default:
		d.setErr(ErrUnexpectedType)
		return 0, ErrUnexpectedType
	}
}

// GetBytes reads the next item as a byte string.
func (d *Decoder) GetBytes() ([]byte, error) {
	item, err := d.getTyped(TypeByteString)
	if err != nil {
		return nil, err
	}
	return item.Bytes, nil
}

// GetText reads the next item as a text string.
func (d *Decoder) GetText() (string, error) {
	item, err := d.getTyped(TypeTextString)
	if err != nil {
		return "", err
	}
	return item.Text(), nil
}

// GetBool reads the next item as a boolean simple value.
func (d *Decoder) GetBool() (bool, error) {
	item, err := d.getTyped(TypeBool)
	if err != nil {
		return false, err
	}
	return item.Int64 != 0, nil
}

// GetNull consumes the next item, which must be the null simple value.
func (d *Decoder) GetNull() error {
	_, err := d.getTyped(TypeNull)
	return err
}

// GetDouble reads the next item as a floating point value of any width,
// widened to float64.
func (d *Decoder) GetDouble() (float64, error) {
	item, err := d.GetNext()
	if err != nil {
		return 0, err
	}
	switch item.Type {
	case TypeDouble, TypeFloat, TypeHalfFloat:
		return item.Double, nil
	default:
		d.setErr(ErrUnexpectedType)
		return 0, ErrUnexpectedType
	}
}

// --- map search ("spiffy decode") ---

// GetItemInMapSZ searches the currently entered map for a text-string
// label, returning its value.
func (d *Decoder) GetItemInMapSZ(label string) (Item, error) {
	return d.getItemInMap(func(l Label) bool {
		return l.Kind == TypeTextString && l.Text == label
	})
}

// GetItemInMapN searches the currently entered map for an integer label,
// returning its value.
func (d *Decoder) GetItemInMapN(label int64) (Item, error) {
	return d.getItemInMap(func(l Label) bool {
		if label >= 0 {
			return l.Kind == TypeUInt64 && l.Uint64 == uint64(label) ||
				l.Kind == TypeInt64 && l.Int64 == label
		}
		return l.Kind == TypeInt64 && l.Int64 == label
	})
}

func (d *Decoder) getItemInMap(match func(Label) bool) (Item, error) {
	if d.err != nil {
		return Item{}, d.err
	}
	f := d.topFrame()
	if f == nil || (f.kind != frameMap && f.kind != frameMapIndef) {
		d.setErr(ErrMapNotEntered)
		return Item{}, ErrMapNotEntered
	}
	scan := &inBuf{buf: d.curIn().buf, cursor: f.contentStart}
	pairsSeen := uint64(0)
	for {
		if f.kind == frameMap {
			if pairsSeen >= f.totalPairs {
				break
			}
		} else {
			b, ok := scan.peekByte()
			if !ok {
				d.setErr(ErrHitEnd)
				return Item{}, ErrHitEnd
			}
			if b == breakByte {
				break
			}
		}
		labelStart := scan.cursor
		labelItem, err := decodeItemWithTags(scan, nil)
		if err != nil {
			d.setErr(err)
			return Item{}, err
		}
		_ = labelStart
		label, err := labelFromItem(labelItem)
		if err != nil {
			d.setErr(err)
			return Item{}, err
		}
		if match(label) {
			value, err := decodeItemWithTags(scan, d.allocator)
			if err != nil {
				d.setErr(err)
				return Item{}, err
			}
			value.Label = label
			value.HasLabel = true
			return value, nil
		}
		if err := skipOneItem(scan); err != nil {
			d.setErr(err)
			return Item{}, err
		}
		pairsSeen++
	}
	return Item{}, ErrLabelNotFound
}

// --- finishing ---

// Finish verifies the cursor is at the end of input with no open
// containers.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if len(d.stack) != 0 || len(d.wrapStack) != 0 {
		d.setErr(ErrArrayOrMapUnconsumed)
		return ErrArrayOrMapUnconsumed
	}
	if !d.top.atEnd() {
		d.setErr(ErrExtraBytes)
		return ErrExtraBytes
	}
	return nil
}

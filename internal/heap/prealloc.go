package heap

// preAlloc holds the four singleton objects every heap allocates
// exactly once during construction. These belong to the heap, not the
// process, so there is no package-level mutable state here.
type preAlloc struct {
	undef        ObjectRef
	booleanTrue  ObjectRef
	booleanFalse ObjectRef
	emptyString  ObjectRef
}

// initPreAlloc allocates the four singletons directly into blk,
// bypassing the mutator-facing allocation path since it runs once
// during Heap construction before any mutator exists. Every payload
// byte is fully initialized here so that the bytes behind a View are
// always well-defined, even for kinds View never actually reads.
func initPreAlloc(blk *Block) (preAlloc, error) {
	undefInfo := undefCreateInfo()
	undefPtr := blk.TryAlloc(undefInfo.size)
	if undefPtr == nil {
		return preAlloc{}, ErrAllocationFailed
	}
	undef := undefInfo.init(undefPtr)

	trueInfo := booleanCreateInfo(true)
	truePtr := blk.TryAlloc(trueInfo.size)
	if truePtr == nil {
		return preAlloc{}, ErrAllocationFailed
	}
	booleanTrue := trueInfo.init(truePtr)

	falseInfo := booleanCreateInfo(false)
	falsePtr := blk.TryAlloc(falseInfo.size)
	if falsePtr == nil {
		return preAlloc{}, ErrAllocationFailed
	}
	booleanFalse := falseInfo.init(falsePtr)

	emptyInfo, err := stringCreateInfo(0, func([]byte) {})
	if err != nil {
		return preAlloc{}, err
	}
	emptyPtr := blk.TryAlloc(emptyInfo.size)
	if emptyPtr == nil {
		return preAlloc{}, ErrAllocationFailed
	}
	emptyString := emptyInfo.init(emptyPtr)

	return preAlloc{
		undef:        undef,
		booleanTrue:  booleanTrue,
		booleanFalse: booleanFalse,
		emptyString:  emptyString,
	}, nil
}

// Undef returns the heap's single pre-allocated undef object.
func (p *preAlloc) Undef() ObjectRef { return p.undef }

// BooleanTrue returns the heap's single pre-allocated true object.
func (p *preAlloc) BooleanTrue() ObjectRef { return p.booleanTrue }

// BooleanFalse returns the heap's single pre-allocated false object.
func (p *preAlloc) BooleanFalse() ObjectRef { return p.booleanFalse }

// EmptyString returns the heap's single pre-allocated empty-string object.
func (p *preAlloc) EmptyString() ObjectRef { return p.emptyString }

package aggregates

// WriteTxOwnership says who opens and commits the transaction around a write.
type WriteTxOwnership string

// WriteTxOwnedByAggregate: write methods run their own transaction. Callers pass a
// context, never a tx.
const WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"

// ReadPolicy limits which reads an aggregate performs.
type ReadPolicy string

// ReadPolicyInvariantScoped: only reads needed to decide the write. Summaries and
// listings go through the table repos.
const ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"

// Contract is the policy an aggregate declares about its write boundary.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	Notes            string
}

type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}

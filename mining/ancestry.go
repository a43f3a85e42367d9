package mining

// Ancestry holds the ancestor and descendant sets of one transaction. Both
// sets contain the transaction itself and are transitively closed.
type Ancestry struct {
	Ancestors   map[string]struct{}
	Descendants map[string]struct{}
}

// AncestorsAndDescendants computes the ancestry of every transaction in
// pool. Parent references that do not resolve within the pool are ignored.
func AncestorsAndDescendants(pool []*Tx) map[string]Ancestry {
	byID := make(map[string]*Tx, len(pool))
	txids := make([]string, 0, len(pool))
	for _, tx := range pool {
		if _, ok := byID[tx.Txid]; !ok {
			txids = append(txids, tx.Txid)
		}
		byID[tx.Txid] = tx
	}
	return ancestorsAndDescendants(byID, txids)
}

func ancestorsAndDescendants(byID map[string]*Tx, txids []string) map[string]Ancestry {
	ancestry := make(map[string]Ancestry, len(txids))
	for _, txid := range txids {
		ancestry[txid] = Ancestry{
			Ancestors:   map[string]struct{}{txid: {}},
			Descendants: map[string]struct{}{txid: {}},
		}
	}

	for _, txid := range txids {
		anc := ancestry[txid].Ancestors
		// Walk the parent edges to a fixed point; the stack carries txids
		// whose parents have not been visited yet.
		stack := []string{txid}
		for len(stack) > 0 {
			curr := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, parent := range byID[curr].Parents {
				if _, ok := byID[parent]; !ok {
					continue
				}
				if _, ok := anc[parent]; ok {
					continue
				}
				anc[parent] = struct{}{}
				stack = append(stack, parent)
			}
		}
		for parent := range anc {
			if parent != txid {
				ancestry[parent].Descendants[txid] = struct{}{}
			}
		}
	}
	return ancestry
}

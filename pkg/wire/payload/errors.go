package payload

import "fmt"

func errHeaderSize(got int) error {
	return fmt.Errorf("payload: header must be %d bytes, got %d", HeaderSize, got)
}

func errTooManyLocatorHashes(n uint32) error {
	return fmt.Errorf("payload: locator carries %d hashes, exceeds sanity cap of %d", n, maxLocatorHashes)
}

func errTooManyHeaders(n uint32) error {
	return fmt.Errorf("payload: headers batch carries %d entries, exceeds cap of %d", n, MaxHeadersPerBatch)
}

func errTooManyRecords(n uint32) error {
	return fmt.Errorf("payload: proof carries %d records, exceeds cap of %d", n, maxRecordCount)
}

func errTooManyAddrs(n uint32) error {
	return fmt.Errorf("payload: addr carries %d entries, exceeds cap of %d", n, maxAddrEntries)
}

func errTooManyInv(n uint32) error {
	return fmt.Errorf("payload: inv carries %d entries, exceeds cap of %d", n, maxInvEntries)
}

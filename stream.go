// Cluster I/O: mapping byte ranges of a file onto cluster-chain traversal
// and sector transfers. Chain growth and shrinking goes through the FAT
// table manager; all device access stays sector-sized.

package fat32

import (
	"github.com/aligator/checkpoint"
)

// readFileAt copies up to len(dst) bytes starting at off into dst, clamped
// to the declared file size. It returns the number of bytes copied.
func (fs *FS) readFileAt(first uint32, size, off int64, dst []byte) (int, error) {
	if off >= size || len(dst) == 0 {
		return 0, nil
	}
	if max := size - off; int64(len(dst)) > max {
		dst = dst[:max]
	}
	if first == 0 {
		return 0, nil
	}
	chain, err := fs.fat.chain(first)
	if err != nil {
		return 0, err
	}
	if err := fs.transferRange(chain, off, dst, false); err != nil {
		return 0, err
	}
	return len(dst), nil
}

// writeFileAt writes p at off, extending the chain as needed. first is
// updated in place when the file gains its initial cluster. The caller is
// responsible for persisting the new size and first cluster into the
// directory entry afterwards, preserving the data-before-metadata order.
func (fs *FS) writeFileAt(first *uint32, size int64, off int64, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	end := off + int64(len(p))
	if _, err := fs.ensureCapacity(first, end); err != nil {
		return err
	}
	chain, err := fs.fat.chain(*first)
	if err != nil {
		return err
	}
	return fs.transferRange(chain, off, p, true)
}

// ensureCapacity grows the chain rooted at *first until it covers size
// bytes, zero-filling every newly allocated cluster. It returns the number
// of clusters added. The chain is never shrunk here; only truncate frees
// clusters.
func (fs *FS) ensureCapacity(first *uint32, size int64) (uint32, error) {
	bpc := int64(fs.params.BytesPerCluster)
	needed := (size + bpc - 1) / bpc

	var chainLen int64
	var tail uint32
	if *first != 0 {
		chain, err := fs.fat.chain(*first)
		if err != nil {
			return 0, err
		}
		chainLen = int64(len(chain))
		tail = chain[len(chain)-1]
	}

	added := uint32(0)
	for chainLen < needed {
		c, err := fs.fat.allocate(tail)
		if err != nil {
			return added, err
		}
		if err := fs.zeroCluster(c); err != nil {
			return added, err
		}
		if *first == 0 {
			*first = c
		}
		tail = c
		chainLen++
		added++
	}
	return added, nil
}

// truncateClusters shrinks (or frees) the chain so it covers exactly newSize
// bytes. It returns the updated first cluster (0 when the chain is gone).
func (fs *FS) truncateClusters(first uint32, newSize int64) (uint32, error) {
	if first == 0 {
		return 0, nil
	}
	bpc := int64(fs.params.BytesPerCluster)
	keep := (newSize + bpc - 1) / bpc

	if keep == 0 {
		if _, err := fs.fat.truncateFrom(first, 0); err != nil {
			return first, err
		}
		return 0, nil
	}

	chain, err := fs.fat.chain(first)
	if err != nil {
		return first, err
	}
	if int64(len(chain)) > keep {
		if _, err := fs.fat.truncateFrom(chain[keep], chain[keep-1]); err != nil {
			return first, err
		}
		chain = chain[:keep]
	}
	// Zero the slack of the last kept cluster so a later grow within it
	// reads back zeroes instead of stale bytes.
	if slack := keep*bpc - newSize; slack > 0 {
		if err := fs.transferRange(chain, newSize, make([]byte, slack), true); err != nil {
			return first, err
		}
	}
	return first, nil
}

// transferRange copies between buf and the byte range starting at off inside
// the given cluster chain. Partial sectors are read-modify-written; aligned
// full sectors transfer directly.
func (fs *FS) transferRange(chain []uint32, off int64, buf []byte, write bool) error {
	ss := int64(fs.params.BytesPerSector)
	bpc := int64(fs.params.BytesPerCluster)
	sector := make([]byte, ss)

	pos := 0
	for pos < len(buf) {
		byteOff := off + int64(pos)
		clusterIdx := byteOff / bpc
		if clusterIdx >= int64(len(chain)) {
			return checkpoint.From(ErrInvalidCluster)
		}
		within := byteOff % bpc
		lba := fs.params.clusterStartSector(chain[clusterIdx]) + uint32(within/ss)
		sectorOff := within % ss

		n := int(ss - sectorOff)
		if remaining := len(buf) - pos; n > remaining {
			n = remaining
		}

		switch {
		case write && sectorOff == 0 && n == int(ss):
			if err := fs.dev.WriteSector(lba, buf[pos:pos+n]); err != nil {
				return checkpoint.Wrap(err, ErrDeviceIO)
			}
		case write:
			if err := fs.dev.ReadSector(lba, sector); err != nil {
				return checkpoint.Wrap(err, ErrDeviceIO)
			}
			copy(sector[sectorOff:], buf[pos:pos+n])
			if err := fs.dev.WriteSector(lba, sector); err != nil {
				return checkpoint.Wrap(err, ErrDeviceIO)
			}
		default:
			if err := fs.dev.ReadSector(lba, sector); err != nil {
				return checkpoint.Wrap(err, ErrDeviceIO)
			}
			copy(buf[pos:pos+n], sector[sectorOff:])
		}
		pos += n
	}
	return nil
}

// zeroCluster overwrites every sector of a cluster with zeroes. Freshly
// allocated clusters are zeroed so bytes beyond the declared size always
// read back as zero and new directory clusters start empty.
func (fs *FS) zeroCluster(cluster uint32) error {
	zero := make([]byte, fs.params.BytesPerSector)
	start := fs.params.clusterStartSector(cluster)
	for s := uint32(0); s < uint32(fs.params.SectorsPerCluster); s++ {
		if err := fs.dev.WriteSector(start+s, zero); err != nil {
			return checkpoint.Wrap(err, ErrDeviceIO)
		}
	}
	return nil
}

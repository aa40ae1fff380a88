// Package blocks stores one logical table as a grid of files and reads it
// back.
//
// Rows are split into row groups (rgroups), one file each. Columns may also
// be split into column groups (cgroups), one subdirectory each:
//
//	dest/part_00000.cbor          ungrouped
//	dest/part_00001.cbor
//
//	dest/g0/part_00000.cbor       grouped
//	dest/g1/part_00000.cbor
//
// Assemble reads such a layout into a single table: cgroups of each rgroup
// are joined on their shared columns, then rgroups are stacked in name order.
// Iterate walks the same layout one block at a time. Divide and Place write
// layouts.
//
// Every operation takes the storage.FileSystem to use in its options record;
// nil selects the local filesystem.
package blocks

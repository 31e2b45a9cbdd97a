package services

import "strings"

// skuSeparator is the token separator used by vendor SKU strings
const skuSeparator = "-"

// ParsedSKU is the result of splitting a full SKU into its base and size
// parts. SizeMismatch is set when the SKU-derived size disagrees with the
// authoritative size option.
type ParsedSKU struct {
	BaseSKU      string
	Size         string
	SizeMismatch bool
}

// SplitSKU splits a SKU at its last separator into base and size. This is a
// known-imprecise heuristic: sizes that themselves contain the separator
// (size ranges like "M/L(7-16)") split at the wrong place. Callers should
// prefer ParseSKU with the authoritative size option when one is available.
func SplitSKU(sku string) (base, size string) {
	idx := strings.LastIndex(sku, skuSeparator)
	if idx <= 0 || idx == len(sku)-1 {
		return sku, ""
	}
	return sku[:idx], sku[idx+1:]
}

// ParseSKU derives base SKU and size, preferring the authoritative size
// option over the last-separator heuristic. When the authoritative size is a
// suffix of the SKU the base is the SKU with that suffix stripped; otherwise
// the heuristic base is kept. Records where the heuristic disagrees with the
// authoritative size are flagged for review.
func ParseSKU(sku, sizeOption string) ParsedSKU {
	heurBase, heurSize := SplitSKU(sku)

	if sizeOption == "" {
		return ParsedSKU{BaseSKU: heurBase, Size: heurSize}
	}

	base := heurBase
	if suffix := skuSeparator + sizeOption; strings.HasSuffix(sku, suffix) {
		base = strings.TrimSuffix(sku, suffix)
	}

	return ParsedSKU{
		BaseSKU:      base,
		Size:         sizeOption,
		SizeMismatch: heurSize != sizeOption,
	}
}

package stay

// Block は部屋を占有している既存予約の期間
type Block struct {
	ReservationID string
	Range         Range
}

// FindConflict は候補期間と重なる最初のブロックを返す
// excludeID に一致するブロックは判定対象外
func FindConflict(candidate Range, blocks []Block, excludeID string) (Block, bool) {
	for _, b := range blocks {
		if excludeID != "" && b.ReservationID == excludeID {
			continue
		}
		if b.Range.Overlaps(candidate) {
			return b, true
		}
	}
	return Block{}, false
}

// IsFree は部屋が候補期間に予約可能かを返す
// 部屋が販売停止中の場合は期間に関係なく false
func IsFree(roomAvailable bool, candidate Range, blocks []Block, excludeID string) bool {
	if !roomAvailable {
		return false
	}
	_, conflict := FindConflict(candidate, blocks, excludeID)
	return !conflict
}

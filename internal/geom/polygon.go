package geom

// PointInPolygon 짝홀 레이캐스팅 판정, O(vertices)
//
// 폴리곤은 암묵적으로 닫힌다 (마지막 점 → 첫 점). 드래그 경로가 스스로
// 닫히지 않아도 된다.
func PointInPolygon(pt ScreenPoint, polygon []ScreenPoint) bool {
	if len(polygon) < 3 {
		return false
	}
	inside := false
	j := len(polygon) - 1
	for i := range polygon {
		xi, yi := polygon[i].X, polygon[i].Y
		xj, yj := polygon[j].X, polygon[j].Y
		if (yi > pt.Y) != (yj > pt.Y) &&
			pt.X < (xj-xi)*(pt.Y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

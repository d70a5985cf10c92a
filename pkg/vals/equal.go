package vals

import "reflect"

// Equal reports whether two values are equal. Numbers compare by value
// regardless of representation, Fielders by identity, and lists and maps
// element-wise.
func Equal(x, y any) bool {
	if fx, ok := toFloat(x); ok {
		fy, ok := toFloat(y)
		return ok && fx == fy
	}
	switch x := x.(type) {
	case nil:
		return y == nil
	case bool:
		return x == y
	case string:
		return x == y
	case Fielder:
		return x == y
	case []any:
		y, ok := y.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := y.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, vx := range x {
			vy, ok := y[k]
			if !ok || !Equal(vx, vy) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(x, y)
	}
}

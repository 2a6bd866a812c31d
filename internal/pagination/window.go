package pagination

// Window returns the inclusive range of page indexes to render as buttons:
// at most max pages, centred on current where possible. end < start when
// total is 0.
func Window(current, total, max int) (start, end int) {
	if total <= 0 || max <= 0 {
		return 0, -1
	}
	start = current - max/2
	if start > total-max {
		start = total - max
	}
	if start < 0 {
		start = 0
	}
	end = start + max - 1
	if end > total-1 {
		end = total - 1
	}
	return start, end
}

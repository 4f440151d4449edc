package str

// ShortLabel truncates a label to 45 characters if necessary, for plot
// ticks and progress lines.
func ShortLabel(label string) string {
	if len(label) < 45 {
		return label
	}
	return label[0:41] + "..."
}

package utils

import "time"

// GetTashkentLocation returns the business timezone (UTC+5, no DST).
func GetTashkentLocation() *time.Location {
	return time.FixedZone("Asia/Tashkent", 5*3600)
}

// NowInTashkent returns the current Tashkent time.
func NowInTashkent() time.Time {
	return time.Now().In(GetTashkentLocation())
}

// NowUTC returns the current UTC time (used for MongoDB timestamps).
func NowUTC() time.Time {
	return time.Now().UTC()
}

// FormatTashkentTime formats a time as HH:mm in the business timezone.
func FormatTashkentTime(t time.Time) string {
	return t.In(GetTashkentLocation()).Format("15:04")
}

// FormatTashkentDateTime formats a full date-time in the business timezone.
func FormatTashkentDateTime(t time.Time) string {
	return t.In(GetTashkentLocation()).Format("2006-01-02 15:04:05")
}

// IsNightHour reports whether the given local hour falls in the preorder
// window. Orders placed between startHour in the evening and endHour in the
// morning are flagged as preorders.
func IsNightHour(hour, startHour, endHour int) bool {
	return hour >= startHour || hour <= endHour
}

// IsPreorderTime reports whether an order placed at t counts as a preorder
// with the default night window (22:00 through 06:00 Tashkent time).
func IsPreorderTime(t time.Time) bool {
	hour := t.In(GetTashkentLocation()).Hour()
	return IsNightHour(hour, 22, 6)
}

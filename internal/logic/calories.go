package logic

// KcalPerKgKm is the fixed walking energy model coefficient.
const KcalPerKgKm = 0.9

// Calories returns the energy in kcal spent walking distanceMeters at weightKg.
func Calories(distanceMeters, weightKg float64) float64 {
	return distanceMeters / 1000 * weightKg * KcalPerKgKm
}

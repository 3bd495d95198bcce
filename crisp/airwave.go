package crisp

// Refractive index of standard air following Greisen et al. (2006),
// accurate for the visible and near-infrared range CRISP observes in.
// Wavelengths are in Å.
func airRefractiveIndex(vac float64) float64 {
	s2 := 1e8 / (vac * vac) // (1/λ[µm])²
	return 1 + 1e-6*(287.6155+1.62887*s2+0.01360*s2*s2)
}

// VacToAir converts a vacuum wavelength in Å to its air equivalent.
func VacToAir(vac float64) float64 {
	return vac / airRefractiveIndex(vac)
}

// AirToVac converts an air wavelength in Å to vacuum, iterating the
// refractive index to convergence.
func AirToVac(air float64) float64 {
	vac := air
	for i := 0; i < 5; i++ {
		vac = air * airRefractiveIndex(vac)
	}
	return vac
}

package adsb

// Mode S downlink constants for the DF17 frames this package builds
const (
	DF17CA5 = 0x8D // Downlink Format 17, Capability 5 (airborne)

	TypeAirbornePosition = 0x58 // TC 11, surveillance status 0, single antenna 0
	TypeAirborneVelocity = 0x99 // TC 19, subtype 1 (ground speed, subsonic)

	PayloadBytes = 11 // DF/CA + ICAO + ME, covered by the CRC
	FrameBytes   = 14 // 112 bits
	CRCBytes     = FrameBytes - PayloadBytes

	// '*' + 28 hex digits + ';'
	AVRFrameLen = 2*FrameBytes + 2
)

// CRC-24 generator (Mode S standard, from dump1090). The 25-bit form
// includes the implicit x^24 term.
const (
	MODES_GENERATOR_POLY     = 0xfff409
	MODES_GENERATOR_POLY_X24 = 0x1fff409
	crcMask                  = 0xffffff
)

// CPR encoding constants
const (
	NZ = 15 // number of geographic latitude zones between equator and pole

	CPR_LAT_BITS = 17
	CPR_LON_BITS = 17
	CPR_LAT_MAX  = 131072 // 2^17
	CPR_LON_MAX  = 131072 // 2^17
	CPR_MASK     = CPR_LAT_MAX - 1
)

// Altitude field constants (AC12, 25 ft resolution)
const (
	AltitudeResolutionFt = 25
	AltitudeQBit         = 1 << 11
	AltitudeNMask        = 0x7ff
	AltitudeMask         = 0xfff
)

// Airborne velocity field limits
const (
	VelocityMaxComponent    = 1023 // 10-bit EW/NS magnitude
	VerticalRateMax         = 511  // 9-bit vertical rate magnitude
	VerticalRateResolution  = 64   // ft/min per unit
	velocityIFRCapability   = 1
	velocityVerticalRateSrc = 0 // GNSS
)

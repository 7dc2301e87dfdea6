package world

// Rules holds every tunable of the arena. Distances are in arena pixels,
// speeds in pixels per frame and durations in seconds of sim time.
type Rules struct {
	Width          float64
	Height         float64
	EndZoneWidth   float64
	SpawnZoneWidth float64

	SmallRadius     float64
	LargeRadius     float64
	SmallSpeed      float64
	LargeSpeed      float64
	LargeMoveFactor float64 // tanks move at this fraction of their own speed

	RoundSeconds   float64
	CountdownFrom  int
	AutoSpawnEvery float64

	RoundRestartDelay float64
	TieBannerDelay    float64
	SuddenBannerDelay float64
	SuddenEndDelay    float64
	BannerSeconds     float64
	MegaBannerSeconds float64

	MegaDuration   float64
	FrenzyChance   float64 // rolled once per frame while frenzy is active
	MeteorSpeed    float64
	MeteorRadius   float64
	MeteorTrailLen int

	SpawnMargin      float64 // vertical margin kept free by single spawns
	SpawnJitterX     int
	SpawnJitterY     int
	CrampFactor      float64 // min separation = CrampFactor * radius
	SpawnAttempts    int
	SpawnRetryDelay  float64
	QueueSpacing     float64
	MaxQueuedSpawns  int
	MultiMargin      float64
	AutoSpawnMarginY float64

	BlinkPeriod   float64
	WinResetAfter int

	TeamNames [2]string
}

func DefaultRules() Rules {
	return Rules{
		Width:          1280,
		Height:         720,
		EndZoneWidth:   100,
		SpawnZoneWidth: 50,

		SmallRadius:     15,
		LargeRadius:     30,
		SmallSpeed:      2,
		LargeSpeed:      1.5,
		LargeMoveFactor: 0.5,

		RoundSeconds:   60,
		CountdownFrom:  3,
		AutoSpawnEvery: 5,

		RoundRestartDelay: 3,
		TieBannerDelay:    1.5,
		SuddenBannerDelay: 1.5,
		SuddenEndDelay:    0.5,
		BannerSeconds:     3,
		MegaBannerSeconds: 3,

		MegaDuration:   10,
		FrenzyChance:   0.05,
		MeteorSpeed:    5,
		MeteorRadius:   26,
		MeteorTrailLen: 15,

		SpawnMargin:      20,
		SpawnJitterX:     30,
		SpawnJitterY:     50,
		CrampFactor:      2.5,
		SpawnAttempts:    10,
		SpawnRetryDelay:  0.1,
		QueueSpacing:     80,
		MaxQueuedSpawns:  512,
		MultiMargin:      50,
		AutoSpawnMarginY: 100,

		BlinkPeriod:   0.18,
		WinResetAfter: 50,

		TeamNames: [2]string{"pumpkin", "bat"},
	}
}

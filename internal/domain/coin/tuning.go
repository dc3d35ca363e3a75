package coin

// Per-frame physics tuning. Velocities are scene units per frame and the frame
// duration is treated as constant.
const (
	Gravity         = 0.25 // added to VY every frame
	GroundBounce    = 0.4  // fraction of VY kept (and reversed) on ground contact
	GroundFriction  = 0.8  // fraction of VX kept on ground contact
	WallBounce      = 0.5  // fraction of VX kept (and reversed) at a side wall
	StillSpeedY     = 0.5  // |VY| below this counts as still
	StillSpeedX     = 0.1  // |VX| below this counts as still
	SettleFrames    = 30   // still frames to exceed before settling
	SpawnDriftMax   = 0.5  // initial |VX| bound
	SpawnLiftFactor = 2.0  // spawn height above the top edge, in radii
)

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DataPoint is one timestamped sensor reading taken during a mission.
//
// Field names (including the irregular casing of sonic_cam_Tilt and
// PT7_Tilt) match the upstream dashboard contract and must not be changed.
// MissionID and point-level RobotID are only populated under normalized
// storage, where points live in their own collection and reference the
// owning mission document.
type DataPoint struct {
	MissionID primitive.ObjectID `bson:"mission_id,omitempty" json:"mission_id,omitempty"`
	RobotID   string             `bson:"robot_id,omitempty" json:"robot_id,omitempty"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	UnixTime  float64   `bson:"unix_time" json:"unix_time"`

	// Position and attitude
	PosX              int     `bson:"pos_x" json:"pos_x"`
	PosY              int     `bson:"pos_y" json:"pos_y"`
	Theta             int     `bson:"theta" json:"theta"`
	LocalizationScore float64 `bson:"localization_score" json:"localization_score"`
	TiltX             float64 `bson:"tilt_x" json:"tilt_x"`
	TiltY             float64 `bson:"tilt_y" json:"tilt_y"`

	// Not-yet-modeled particle/gas counters, always zero.
	SPMFlex1 int `bson:"spm_flex_1" json:"spm_flex_1"`
	SPMFlex2 int `bson:"spm_flex_2" json:"spm_flex_2"`
	GTD5000  int `bson:"gtd_5000" json:"gtd_5000"`

	// Environmental sensors
	NH3         float64 `bson:"NH3" json:"NH3"`
	H2S         float64 `bson:"H2S" json:"H2S"`
	VOCs        float64 `bson:"VOCs" json:"VOCs"`
	F2          float64 `bson:"F2" json:"F2"`
	HF          float64 `bson:"HF" json:"HF"`
	Temperature float64 `bson:"temperature" json:"temperature"`
	Humidity    float64 `bson:"humidity" json:"humidity"`
	Illuminance float64 `bson:"illuminance" json:"illuminance"`
	Noise       float64 `bson:"noise" json:"noise"`

	// Camera gimbals, always zero until the camera model lands.
	ThermalCamPan  int `bson:"thermal_cam_Pan" json:"thermal_cam_Pan"`
	ThermalCamTilt int `bson:"thermal_cam_tilt" json:"thermal_cam_tilt"`
	ThermalCamZoom int `bson:"thermal_cam_zoom" json:"thermal_cam_zoom"`
	SonicCamPan    int `bson:"sonic_cam_pan" json:"sonic_cam_pan"`
	SonicCamTilt   int `bson:"sonic_cam_Tilt" json:"sonic_cam_Tilt"`
	SonicCamZoom   int `bson:"sonic_cam_zoom" json:"sonic_cam_zoom"`
	NormalPan      int `bson:"normal_Pan" json:"normal_Pan"`
	NormalTilt     int `bson:"normal_Tilt" json:"normal_Tilt"`
	NormalZoom     int `bson:"normal_Zoom" json:"normal_Zoom"`
	PTZPan         int `bson:"PTZ_Pan" json:"PTZ_Pan"`
	PT7Tilt        int `bson:"PT7_Tilt" json:"PT7_Tilt"`
	PTZZoom        int `bson:"PTZ_Zoom" json:"PTZ_Zoom"`

	// Waypoint identifiers
	PillarNumber string `bson:"pillar_number" json:"pillar_number"`
	BayNumber    string `bson:"bay_number" json:"bay_number"`
	ShotNumber   string `bson:"shot_number" json:"shot_number"`

	// Opaque media references
	VRImage            primitive.ObjectID `bson:"vr_image" json:"vr_image"`
	PTZImage           primitive.ObjectID `bson:"ptz_image" json:"ptz_image"`
	ThermalImage       primitive.ObjectID `bson:"thermal_image" json:"thermal_image"`
	ThermalRawdata     primitive.ObjectID `bson:"thermal_rawdata" json:"thermal_rawdata"`
	ThermalRealImage   primitive.ObjectID `bson:"thermal_real_image" json:"thermal_real_image"`
	SonicOriginalImage primitive.ObjectID `bson:"sonic_original_image" json:"sonic_original_image"`
	SonicRawdata       primitive.ObjectID `bson:"sonic_rawdata" json:"sonic_rawdata"`
}

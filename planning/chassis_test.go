package planning

import (
	"testing"

	"go.viam.com/test"
)

func validLimits() ChassisLimits {
	return ChassisLimits{VMaxMS: 2, AMaxMS2: 2, OmegaMaxRads: 1.5, SteerMaxRad: 0.6}
}

func TestChassisLimitsValidateRejectsNonPositive(t *testing.T) {
	test.That(t, validLimits().Validate(), test.ShouldBeNil)

	bad := validLimits()
	bad.VMaxMS = 0
	test.That(t, bad.Validate(), test.ShouldNotBeNil)

	bad = validLimits()
	bad.SteerMaxRad = -0.1
	test.That(t, bad.Validate(), test.ShouldNotBeNil)
}

func TestChassisValidateWheelbaseInvariant(t *testing.T) {
	c := Chassis{WheelbaseM: 1.0, BodyLengthM: 5.0, Limits: validLimits()}
	test.That(t, c.Validate(), test.ShouldNotBeNil)

	c.WheelbaseM = 2.0
	test.That(t, c.Validate(), test.ShouldBeNil)
}

func TestMaxCurvatureFromSteerAndWheelbase(t *testing.T) {
	c := Chassis{WheelbaseM: 2.0, Limits: ChassisLimits{SteerMaxRad: 0, VMaxMS: 1, AMaxMS2: 1, OmegaMaxRads: 1}}
	test.That(t, c.MaxCurvature(), test.ShouldAlmostEqual, 0.0, 1e-9)
}

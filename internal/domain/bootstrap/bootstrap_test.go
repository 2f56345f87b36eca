package bootstrap_test

import (
	"testing"

	"github.com/okian/varbox/internal/domain/appearance"
	"github.com/okian/varbox/internal/domain/bootstrap"
	"github.com/okian/varbox/internal/domain/identity"
	"github.com/okian/varbox/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func feed(b *bootstrap.Bootstrapper, from, to int, id identity.ID, cov appearance.Coverage) {
	for f := from; f < to; f++ {
		b.AddObservation(f, id, appearance.Signature{1, 0}, cov)
	}
}

func TestBootstrapper(t *testing.T) {
	Convey("Given a bootstrapper with a short window", t, func() {
		b := bootstrap.New(bootstrap.WithWindow(10), bootstrap.WithMinSamples(3))

		Convey("It is not ready before observations", func() {
			So(b.Ready(100), ShouldBeFalse)
		})

		Convey("Ready follows the first observed frame", func() {
			b.AddObservation(5, 1, appearance.Signature{1}, appearance.Coverage{})
			So(b.Ready(14), ShouldBeFalse)
			So(b.Ready(15), ShouldBeTrue)
		})

		Convey("Roles go to the dominant colour holders", func() {
			feed(b, 0, 10, 1, appearance.Coverage{Red: 0.6})
			feed(b, 0, 10, 2, appearance.Coverage{Blue: 0.5})
			feed(b, 0, 10, 3, appearance.Coverage{White: 0.7})
			feed(b, 0, 2, 4, appearance.Coverage{Blue: 0.9})

			roles := b.Finalize()
			So(roles, ShouldResemble, map[identity.ID]model.Role{
				1: model.RoleRed,
				2: model.RoleBlue,
				3: model.RoleReferee,
			})
			So(b.Finalized(), ShouldBeTrue)

			Convey("Finalize is idempotent and later observations are ignored", func() {
				feed(b, 10, 40, 5, appearance.Coverage{Red: 1})
				So(b.Finalize(), ShouldResemble, roles)
				So(b.Samples(5), ShouldEqual, 0)
			})
		})

		Convey("Blue is chosen before red", func() {
			feed(b, 0, 5, 1, appearance.Coverage{Red: 0.5, Blue: 0.4})
			feed(b, 0, 5, 2, appearance.Coverage{Red: 0.6, Blue: 0.1})
			roles := b.Finalize()
			So(roles[1], ShouldEqual, model.RoleBlue)
			So(roles[2], ShouldEqual, model.RoleRed)
		})

		Convey("Ties go to the lowest identity", func() {
			feed(b, 0, 5, 7, appearance.Coverage{Blue: 0.5})
			feed(b, 0, 5, 3, appearance.Coverage{Blue: 0.5})
			roles := b.Finalize()
			So(roles[3], ShouldEqual, model.RoleBlue)
			So(roles[7], ShouldEqual, model.RoleRed)
		})

		Convey("With no eligible identities nothing is assigned", func() {
			feed(b, 0, 2, 1, appearance.Coverage{Red: 1})
			So(b.Finalize(), ShouldBeEmpty)
			_, ok := b.Role(1)
			So(ok, ShouldBeFalse)
		})

		Convey("Signatures are smoothed", func() {
			b.AddObservation(0, 1, appearance.Signature{1, 0}, appearance.Coverage{})
			b.AddObservation(1, 1, appearance.Signature{0, 1}, appearance.Coverage{})
			sig, ok := b.Signature(1)
			So(ok, ShouldBeTrue)
			So(sig[0], ShouldAlmostEqual, 0.8)
			So(sig[1], ShouldAlmostEqual, 0.2)
		})
	})
}

package seed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/yigit/campusdata/internal/app/models"
	"github.com/yigit/campusdata/internal/orm"
	"github.com/yigit/campusdata/internal/orm/query"
)

// Dataset is the default campus data. Its entities are attached to the
// session that created them.
type Dataset struct {
	Grace, Alan        *models.Teacher
	Math, Physics, Art *models.Course
	Ada, Bob, Cy, Dee  *models.Student
	DeeProfile         *models.Profile
}

// Build returns the default dataset, transient:
//
//	Grace teaches Math and Physics, Alan teaches nothing, Art has no teacher.
//	Ada (20) takes Math and Physics and has two phones.
//	Bob (22) takes Math. Cy (22) takes nothing.
//	Dee (25) takes Physics, lives in Izmir and has a profile.
func Build() *Dataset {
	d := &Dataset{
		Grace:   models.NewTeacher("Grace Hopper"),
		Alan:    models.NewTeacher("Alan Turing"),
		Math:    models.NewCourse("Mathematics"),
		Physics: models.NewCourse("Physics"),
		Art:     models.NewCourse("Art History"),
		Ada:     models.NewStudent("Ada", 20),
		Bob:     models.NewStudent("Bob", 22),
		Cy:      models.NewStudent("Cy", 22),
		Dee:     models.NewStudent("Dee", 25),
	}
	d.Grace.AddCourse(d.Math)
	d.Grace.AddCourse(d.Physics)

	d.Ada.AddCourse(d.Math)
	d.Ada.AddCourse(d.Physics)
	d.Ada.AddPhone("555-0100")
	d.Ada.AddPhone("555-0101")
	d.Bob.AddCourse(d.Math)
	d.Dee.AddCourse(d.Physics)
	d.Dee.Address = &models.Address{Street: "Kordon 1", City: "Izmir", ZipCode: "35000"}

	d.DeeProfile = models.NewProfile("Kordon 1, Izmir", "555-0400")
	d.Dee.SetProfile(d.DeeProfile)
	return d
}

// Insert persists d in one transaction of sess
func (d *Dataset) Insert(ctx context.Context, sess *orm.Session) error {
	return sess.InTransaction(ctx, func(ctx context.Context) error {
		for _, e := range []orm.Entity{d.Grace, d.Alan, d.Art, d.Ada, d.Bob, d.Cy, d.Dee} {
			if err := sess.Persist(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateDefaultData inserts the default dataset unless students already
// exist
func CreateDefaultData(ctx context.Context, f *orm.Factory, lgr zerolog.Logger) error {
	return f.WithSession(ctx, func(sess *orm.Session) error {
		n, err := query.Count(ctx, sess, query.From(models.EntityStudent))
		if err != nil {
			return errors.Join(errors.New("failed to check existing data"), err)
		}
		if n > 0 {
			lgr.Info().Int64("students", n).Msg("Data present, skipping seed")
			return nil
		}

		lgr.Info().Msg("Creating default data (teachers, courses, students)...")
		if err := Build().Insert(ctx, sess); err != nil {
			lgr.Error().Err(err).Msg("Error creating default data")
			return err
		}
		lgr.Info().Msg("Default data created")
		return nil
	})
}

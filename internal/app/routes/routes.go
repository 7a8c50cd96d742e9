package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/campusdata/internal/app/controllers"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	studentController *controllers.StudentController,
	courseController *controllers.CourseController,
	teacherController *controllers.TeacherController,
) {
	// API version group
	v1 := router.Group("/api/v1")

	students := v1.Group("/students")
	{
		students.GET("", studentController.SearchStudents)
		students.POST("", studentController.CreateStudent)
		students.GET("/:id", studentController.GetStudent)
		students.PUT("/:id", studentController.UpdateStudent)
		students.DELETE("/:id", studentController.DeleteStudent)
		students.GET("/:id/teachers", studentController.GetStudentTeachers)

		// Enrollment
		students.POST("/:id/courses/:courseId", studentController.Enroll)
		students.DELETE("/:id/courses/:courseId", studentController.Drop)
	}

	courses := v1.Group("/courses")
	{
		courses.GET("", courseController.GetCourses)
		courses.GET("/stats", courseController.GetStats)
		courses.GET("/:id", courseController.GetCourse)
	}

	teachers := v1.Group("/teachers")
	{
		teachers.GET("", teacherController.GetTeachers)
		teachers.GET("/idle", teacherController.GetIdleTeachers)
		teachers.GET("/:id", teacherController.GetTeacher)
		teachers.DELETE("/:id", teacherController.DeleteTeacher)
	}
}

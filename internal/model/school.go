package model

import "time"

// Student statuses.
const (
	StudentExpelled   = "EXPELLED"
	StudentSuspended  = "SUSPENDED"
	StudentAuthorized = "AUTHORIZED"
)

type FormationRequest struct {
	CodeFormation string `json:"codeFormation" binding:"required,max=32"`
	NameFormation string `json:"nameFormation" binding:"required"`
}

func (r *FormationRequest) Record() Record {
	return Record{"codeFormation": r.CodeFormation, "nameFormation": r.NameFormation}
}

type NiveauRequest struct {
	CodeNiveau string `json:"codeNiveau" binding:"required,max=32"`
	Libelle    string `json:"libelle" binding:"required"`
	Formation  string `json:"formation" binding:"required"`
}

func (r *NiveauRequest) Record() Record {
	return Record{"codeNiveau": r.CodeNiveau, "libelle": r.Libelle, "formation": r.Formation}
}

// UniteRequest describes a teaching unit (unité d'enseignement).
type UniteRequest struct {
	Code     string `json:"code" binding:"required,max=32"`
	Credit   int    `json:"credit" binding:"required,gt=0,lte=60"`
	Intitule string `json:"intitule" binding:"required"`
}

func (r *UniteRequest) Record() Record {
	return Record{"code": r.Code, "credit": r.Credit, "intitule": r.Intitule}
}

type MatiereRequest struct {
	Intitule      string  `json:"intitule" binding:"required"`
	Code          string  `json:"code" binding:"required,max=32"`
	Coefficient   float64 `json:"coefficient" binding:"required,gt=0"`
	TeacherFull   *string `json:"teacherFull"`
	TeacherSecond *string `json:"teacherSecond"`
	Unite         *string `json:"unite"`
}

func (r *MatiereRequest) Record() Record {
	return Record{
		"intitule":      r.Intitule,
		"code":          r.Code,
		"coefficient":   r.Coefficient,
		"teacherFull":   r.TeacherFull,
		"teacherSecond": r.TeacherSecond,
		"unite":         r.Unite,
	}
}

type StudentRequest struct {
	User          string     `json:"user" binding:"required"`
	StudentNumber string     `json:"studentNumber" binding:"required"`
	EnrolledAt    *time.Time `json:"enrolledAt" binding:"omitempty,notfuture"`
	StudentStatus string     `json:"studentStatus" binding:"omitempty,oneof=EXPELLED SUSPENDED AUTHORIZED"`
}

func (r *StudentRequest) Record() Record {
	status := r.StudentStatus
	if status == "" {
		status = StudentAuthorized
	}
	return Record{
		"user":          r.User,
		"studentNumber": r.StudentNumber,
		"enrolledAt":    r.EnrolledAt,
		"studentStatus": status,
	}
}

type TeacherRequest struct {
	User            string     `json:"user" binding:"required"`
	Rank            *string    `json:"rank"`
	HiringDate      *time.Time `json:"hiringDate" binding:"omitempty,notfuture"`
	Qualification   *string    `json:"qualification"`
	ExperienceYears int        `json:"experienceYears" binding:"gte=0"`
	Salary          *float64   `json:"salary" binding:"required,gte=0"`
}

func (r *TeacherRequest) Record() Record {
	return Record{
		"user":            r.User,
		"rank":            r.Rank,
		"hiringDate":      r.HiringDate,
		"qualification":   r.Qualification,
		"experienceYears": r.ExperienceYears,
		"salary":          r.Salary,
	}
}

// ParentRequest links a user to the parent role of the school.
type ParentRequest struct {
	User string `json:"user" binding:"required"`
}

func (r *ParentRequest) Record() Record {
	return Record{"user": r.User}
}

// AdminRequest links a user to the school administration staff.
type AdminRequest struct {
	User string `json:"user" binding:"required"`
}

func (r *AdminRequest) Record() Record {
	return Record{"user": r.User}
}

// EvaluationRequest records grades out of 20.
type EvaluationRequest struct {
	Teacher string   `json:"teacher" binding:"required"`
	Matiere string   `json:"matiere" binding:"required"`
	Student string   `json:"student" binding:"required"`
	NoteTP  *float64 `json:"noteTP" binding:"omitempty,gte=0,lte=20"`
	NoteCC  *float64 `json:"noteCC" binding:"omitempty,gte=0,lte=20"`
	NoteDS  *float64 `json:"noteDS" binding:"required,gte=0,lte=20"`
}

func (r *EvaluationRequest) Record() Record {
	return Record{
		"teacher": r.Teacher,
		"matiere": r.Matiere,
		"student": r.Student,
		"noteTP":  r.NoteTP,
		"noteCC":  r.NoteCC,
		"noteDS":  r.NoteDS,
	}
}

// PointageRequest is an attendance check-in.
type PointageRequest struct {
	Date    time.Time `json:"date" binding:"required,notfuture"`
	User    string    `json:"user" binding:"required"`
	Matiere string    `json:"matiere" binding:"required"`
}

func (r *PointageRequest) Record() Record {
	return Record{"date": r.Date, "user": r.User, "matiere": r.Matiere}
}

type StudentPresenceRequest struct {
	Student  string     `json:"student" binding:"required"`
	Matiere  string     `json:"matiere" binding:"required"`
	Presence *bool      `json:"presence" binding:"required"`
	Date     *time.Time `json:"date" binding:"omitempty,notfuture"`
}

func (r *StudentPresenceRequest) Record() Record {
	return Record{"student": r.Student, "matiere": r.Matiere, "presence": r.Presence, "date": dateOrToday(r.Date)}
}

type TeacherPresenceRequest struct {
	Teacher  string     `json:"teacher" binding:"required"`
	Matiere  string     `json:"matiere" binding:"required"`
	Presence *bool      `json:"presence" binding:"required"`
	Date     *time.Time `json:"date" binding:"omitempty,notfuture"`
}

func (r *TeacherPresenceRequest) Record() Record {
	return Record{"teacher": r.Teacher, "matiere": r.Matiere, "presence": r.Presence, "date": dateOrToday(r.Date)}
}

func dateOrToday(t *time.Time) time.Time {
	if t != nil {
		return t.UTC()
	}
	return time.Now().UTC()
}

package schema

// Entity names exposed by the API.
const (
	Accounts          = "accounts"
	Formations        = "formations"
	Niveaux           = "niveaux"
	Unites            = "unites"
	Matieres          = "matieres"
	Students          = "students"
	Teachers          = "teachers"
	Parents           = "parents"
	Admins            = "admins"
	Evaluations       = "evaluations"
	Pointages         = "pointages"
	PresencesStudents = "presences-students"
	PresencesTeachers = "presences-teachers"
	Customers         = "customers"
	Deliverers        = "deliverers"
	Partners          = "partners"
	Orders            = "orders"
	Products          = "products"
	Contracts         = "contracts"
	Locations         = "locations"
	Notifications     = "notifications"
)

func str(name, column string) Field { return Field{Name: name, Column: column, Type: String} }
func num(name, column string) Field { return Field{Name: name, Column: column, Type: Float} }
func integer(name, column string) Field { return Field{Name: name, Column: column, Type: Int} }
func date(name, column string) Field { return Field{Name: name, Column: column, Type: Time} }

func required(f Field) Field {
	f.Required = true
	return f
}

func unique(f Field) Field {
	f.Unique = true
	f.Required = true
	return f
}

// Definitions returns the entity declarations served by the API.
func Definitions() []Entity {
	return []Entity{
		{
			Name: Accounts, Table: "accounts", CreatedField: FieldCreatedAt,
			Fields: []Field{
				{Name: "email", Column: "email", Type: String, Unique: true},
				{Name: "username", Column: "username", Type: String, Unique: true},
				{Name: "phone", Column: "phone", Type: String, Unique: true},
				required(str("countryCode", "country_code")),
				required(str("role", "role")),
				{Name: "password", Column: "password_hash", Type: String, Hidden: true, Required: true},
			},
		},

		// School administration.
		{
			Name: Formations, Table: "formations", CreatedField: FieldCreatedAt,
			Fields: []Field{
				unique(str("codeFormation", "code_formation")),
				required(str("nameFormation", "name_formation")),
			},
		},
		{
			Name: Niveaux, Table: "niveaux", CreatedField: FieldCreatedAt,
			Fields: []Field{
				unique(str("codeNiveau", "code_niveau")),
				required(str("libelle", "libelle")),
				required(str("formation", "formation_id")),
			},
		},
		{
			Name: Unites, Table: "unites_enseignement", CreatedField: FieldCreatedAt,
			Fields: []Field{
				unique(str("code", "code")),
				required(integer("credit", "credit")),
				required(str("intitule", "intitule")),
			},
		},
		{
			Name: Matieres, Table: "matieres", CreatedField: FieldCreatedAt,
			Fields: []Field{
				required(str("intitule", "intitule")),
				unique(str("code", "code")),
				required(num("coefficient", "coefficient")),
				str("teacherFull", "teacher_full_id"),
				str("teacherSecond", "teacher_second_id"),
				str("unite", "unite_id"),
			},
		},
		{
			Name: Students, Table: "students", CreatedField: FieldCreatedAt,
			Fields: []Field{
				unique(str("user", "user_id")),
				unique(str("studentNumber", "student_number")),
				date("enrolledAt", "enrolled_at"),
				required(str("studentStatus", "student_status")),
			},
		},
		{
			Name: Teachers, Table: "teachers", CreatedField: FieldCreatedAt,
			Fields: []Field{
				unique(str("user", "user_id")),
				str("rank", "rank"),
				date("hiringDate", "hiring_date"),
				str("qualification", "qualification"),
				integer("experienceYears", "experience_years"),
				required(num("salary", "salary")),
			},
		},
		{
			Name: Parents, Table: "parents", CreatedField: FieldCreatedAt,
			Fields: []Field{
				unique(str("user", "user_id")),
			},
		},
		{
			Name: Admins, Table: "school_admins", CreatedField: FieldCreatedAt,
			Fields: []Field{
				unique(str("user", "user_id")),
			},
		},
		{
			Name: Evaluations, Table: "evaluations", CreatedField: FieldCreatedAt,
			Fields: []Field{
				required(str("teacher", "teacher_id")),
				required(str("matiere", "matiere_id")),
				required(str("student", "student_id")),
				num("noteTP", "note_tp"),
				num("noteCC", "note_cc"),
				required(num("noteDS", "note_ds")),
			},
		},
		{
			Name: Pointages, Table: "pointages", CreatedField: FieldCreatedAt,
			Fields: []Field{
				required(date("date", "pointage_date")),
				required(str("user", "user_id")),
				required(str("matiere", "matiere_id")),
			},
		},
		{
			Name: PresencesStudents, Table: "presences_students", CreatedField: FieldCreatedAt,
			Fields: []Field{
				required(str("student", "student_id")),
				required(str("matiere", "matiere_id")),
				{Name: "presence", Column: "presence", Type: Bool, Required: true},
				required(date("date", "presence_date")),
			},
		},
		{
			Name: PresencesTeachers, Table: "presences_teachers", CreatedField: FieldCreatedAt,
			Fields: []Field{
				required(str("teacher", "teacher_id")),
				required(str("matiere", "matiere_id")),
				{Name: "presence", Column: "presence", Type: Bool, Required: true},
				required(date("date", "presence_date")),
			},
		},

		// Delivery marketplace.
		{
			Name: Customers, Table: "customers", CreatedField: FieldCreatedAt,
			Fields: []Field{
				unique(str("account", "account_id")),
				str("socketId", "socket_id"),
				str("fullName", "full_name"),
			},
		},
		{
			Name: Deliverers, Table: "deliverers", CreatedField: FieldCreatedAt,
			Fields: []Field{
				unique(str("account", "account_id")),
				str("socketId", "socket_id"),
				required(str("vehicle", "vehicle")),
				unique(str("vehiclePlate", "vehicle_plate")),
				unique(str("cni", "cni")),
				unique(str("driverLicense", "driver_license")),
			},
		},
		{
			Name: Partners, Table: "partners", CreatedField: FieldCreatedAt,
			Fields: []Field{
				unique(str("account", "account_id")),
				str("socketId", "socket_id"),
				required(str("companyName", "company_name")),
				required(str("companyAddress", "company_address")),
				required(str("companyPhone", "company_phone")),
			},
		},
		{
			Name: Orders, Table: "orders", CreatedField: FieldCreatedAt,
			Fields: []Field{
				required(str("customer", "customer_id")),
				str("deliverer", "deliverer_id"),
				required(date("date", "order_date")),
				required(str("status", "status")),
				required(str("from", "from_address")),
				required(str("to", "to_address")),
				required(num("price", "price")),
			},
		},
		{
			Name: Products, Table: "products", CreatedField: FieldCreatedAt,
			Fields: []Field{
				required(str("order", "order_id")),
				required(str("name", "name")),
				str("description", "description"),
				str("list", "item_list"),
			},
		},
		{
			Name: Contracts, Table: "contracts", CreatedField: FieldCreatedAt,
			Fields: []Field{
				required(str("partner", "partner_id")),
				required(str("deliverer", "deliverer_id")),
				required(date("startDate", "start_date")),
				required(date("endDate", "end_date")),
				required(str("status", "status")),
			},
		},
		{
			Name: Locations, Table: "locations", CreatedField: FieldCreatedAt,
			Fields: []Field{
				required(str("user", "user_id")),
				required(str("role", "role")),
				required(str("address", "address")),
				required(str("category", "category")),
				num("latitude", "latitude"),
				num("longitude", "longitude"),
			},
		},
		{
			Name: Notifications, Table: "notifications", CreatedField: FieldCreatedAt,
			Fields: []Field{
				required(str("user", "user_id")),
				required(str("role", "role")),
				required(str("title", "title")),
				required(str("message", "message")),
				required(str("type", "type")),
				str("action", "action"),
				str("order", "order_id"),
				required(str("status", "status")),
			},
		},
	}
}

// Default builds the registry for Definitions.
func Default() (*Registry, error) {
	return NewRegistry(Definitions()...)
}

package data

// Схема основной БД салона. Для SQLite (dev/test) таблицы создаются при
// старте; для hosted Postgres схемой управляет сам сервис, поэтому DDL
// применяется только к драйверу sqlite3.

const salonSchema = `
CREATE TABLE IF NOT EXISTS appointments (
    id TEXT PRIMARY KEY, -- стабильный токен (UUID), генерируется клиентом или экспандером
    employee_id INTEGER NOT NULL,
    date TEXT NOT NULL,  -- "yyyy-MM-dd"
    time TEXT NOT NULL,  -- "HH:mm"
    title TEXT,
    client TEXT NOT NULL,
    duration INTEGER NOT NULL,
    notes TEXT,
    email TEXT,
    phone TEXT,
    color TEXT,
    service_type TEXT NOT NULL,
    client_id INTEGER,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    FOREIGN KEY (employee_id) REFERENCES employees(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_appointments_employee_date ON appointments(employee_id, date);

CREATE TABLE IF NOT EXISTS employees (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    color TEXT NOT NULL DEFAULT '',
    specialization TEXT NOT NULL,
    vacations TEXT DEFAULT '[]', -- JSON-массив дат
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS clients (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT,
    phone TEXT,
    notes TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS recurring_treatments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    client_id INTEGER NOT NULL,
    employee_id INTEGER NOT NULL,
    service_type TEXT NOT NULL,
    duration INTEGER NOT NULL,
    notes TEXT,
    frequency_type TEXT NOT NULL,      -- "weekly" | "monthly"
    frequency_value INTEGER NOT NULL DEFAULT 1,
    preferred_day_of_week INTEGER,     -- 0-6, для weekly
    preferred_day_of_month INTEGER,    -- 1-31, для monthly
    preferred_time TEXT NOT NULL,      -- "HH:mm"
    is_active BOOLEAN NOT NULL DEFAULT 1,
    start_date TEXT NOT NULL,          -- "yyyy-MM-dd"
    end_date TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS custom_services (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL UNIQUE,
    service_categories TEXT DEFAULT '{}', -- JSON: map[категория][]услуга
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);
`

// GetSalonSchema возвращает DDL основной БД.
func GetSalonSchema() string {
	return salonSchema
}

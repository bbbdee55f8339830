package data

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // Драйвер Postgres для hosted-хранилища
	_ "github.com/mattn/go-sqlite3" // Драйвер SQLite, импортируется для побочных эффектов (регистрации драйвера)
)

// Store инкапсулирует подключение к реляционному хранилищу салона и
// канал realtime-уведомлений об изменениях. Раньше подключение жило в
// глобальной переменной; явный объект с конструктором и Close устраняет
// скрытое состояние на уровне модуля и упрощает тесты.
type Store struct {
	DB     *sqlx.DB
	driver string
	feed   *ChangeFeed
}

// OpenStore открывает подключение по имени драйвера ("sqlite3" или
// "postgres") и строке подключения. Для sqlite3 дополнительно применяется
// схема; схемой Postgres управляет hosted-сервис.
func OpenStore(driver, dsn string) (*Store, error) {
	if driver == "sqlite3" {
		dsn = dsn + "?_foreign_keys=on" // Включаем поддержку внешних ключей
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("OpenStore: не удалось подключиться к БД (%s): %w", driver, err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("OpenStore: база данных не отвечает: %w", err)
	}
	log.Printf("Successfully connected to the salon database (driver: %s).", driver)

	s := &Store{
		DB:     db,
		driver: driver,
		feed:   NewChangeFeed(),
	}

	if driver == "sqlite3" {
		if _, err = db.Exec(GetSalonSchema()); err != nil {
			db.Close()
			return nil, fmt.Errorf("OpenStore: не удалось применить схему: %w", err)
		}
		log.Println("Salon database schema applied successfully.")
	}

	return s, nil
}

// Feed возвращает канал уведомлений об изменениях этого хранилища.
func (s *Store) Feed() *ChangeFeed {
	return s.feed
}

// Close закрывает подключение и отключает всех подписчиков ленты изменений.
func (s *Store) Close() error {
	s.feed.CloseAll()
	return s.DB.Close()
}

// rebind переводит запрос с плейсхолдерами "?" в формат текущего драйвера
// ($1, $2, ... для Postgres). Именованные запросы sqlx переводит сама.
func (s *Store) rebind(query string) string {
	return s.DB.Rebind(query)
}

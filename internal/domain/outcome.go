package domain

// Outcome - результат проверки наличия книги в каталоге: Present(book) или Absent.
// Ошибок здесь нет: любые сбои клиента каталога сводятся к Absent.
type Outcome struct {
	book    Book
	present bool
}

// Present - книга найдена.
func Present(book Book) Outcome { return Outcome{book: book, present: true} }

// Absent - книга не найдена или наличие подтвердить не удалось.
func Absent() Outcome { return Outcome{} }

// Book возвращает книгу и признак наличия.
func (o Outcome) Book() (Book, bool) { return o.book, o.present }

// IsPresent - признак наличия.
func (o Outcome) IsPresent() bool { return o.present }

func (o Outcome) String() string {
	if o.present {
		return "present(" + o.book.ISBN + ")"
	}
	return "absent"
}
